package pr

import "strings"

// ContentFromPatch reconstructs the full content of an added file from its
// unified diff: every "+" line minus the "+++" header. Returns ok=false when
// the patch is empty.
func ContentFromPatch(patch string) (string, bool) {
	if patch == "" {
		return "", false
	}
	var content []string
	for _, line := range strings.Split(patch, "\n") {
		if strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++") {
			content = append(content, line[1:])
		}
	}
	return strings.Join(content, "\n"), true
}

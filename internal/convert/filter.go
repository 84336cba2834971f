package convert

import (
	"strconv"
	"strings"
)

// FilterLineLabels keeps the lines whose class id is in keep. Blank lines
// and lines with a non-integer class are dropped.
func FilterLineLabels(lines []string, keep []int) []string {
	want := make(map[int]bool, len(keep))
	for _, k := range keep {
		want[k] = true
	}
	out := []string{}
	for _, line := range lines {
		class, _, ok := splitClass(line)
		if ok && want[class] {
			out = append(out, line)
		}
	}
	return out
}

// RemapLineLabels rewrites class ids through mapping. Classes missing from
// mapping are written unchanged.
func RemapLineLabels(lines []string, mapping map[int]int) []string {
	out := []string{}
	for _, line := range lines {
		class, rest, ok := splitClass(line)
		if !ok {
			continue
		}
		if to, found := mapping[class]; found {
			class = to
		}
		if rest == "" {
			out = append(out, strconv.Itoa(class))
		} else {
			out = append(out, strconv.Itoa(class)+" "+rest)
		}
	}
	return out
}

func splitClass(line string) (int, string, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0, "", false
	}
	class, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, "", false
	}
	return class, strings.Join(fields[1:], " "), true
}

package safety

import "regexp"

// pattern is one destructive-content signature. Patterns are matched per
// line, case-insensitively, against raw script text.
type pattern struct {
	label string
	re    *regexp.Regexp
}

// destructivePatterns is ordered from most to least severe; scan results
// preserve this order within a line.
var destructivePatterns = []pattern{
	{
		label: "recursive force remove of root or home",
		re:    regexp.MustCompile(`(?i)\brm\s+-(?:[a-z]*r[a-z]*f|[a-z]*f[a-z]*r)[a-z]*\s+["']?(?:/\*?|~/?|\$home)["']?\s*(?:$|;|&&?|\|)`),
	},
	{
		label: "rm with preserve-root disabled",
		re:    regexp.MustCompile(`(?i)\brm\b[^|;]*--no-preserve-root`),
	},
	{
		label: "raw write to a block device",
		re:    regexp.MustCompile(`(?i)\bdd\s+[^|;]*\bof=/dev/\S+`),
	},
	{
		label: "redirect into a block device",
		re:    regexp.MustCompile(`>\s*/dev/(?:sd[a-z]|hd[a-z]|nvme\d+|mmcblk\d+|disk\d+)`),
	},
	{
		label: "filesystem creation",
		re:    regexp.MustCompile(`(?i)\bmkfs(?:\.\w+)?\b`),
	},
	{
		label: "fork bomb",
		re:    regexp.MustCompile(`:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;\s*:`),
	},
	{
		label: "elevated recursive deletion",
		re:    regexp.MustCompile(`(?i)\bsudo\s+rm\b`),
	},
	{
		label: "world-writable permission grant",
		re:    regexp.MustCompile(`(?i)\bchmod\s+(?:-[a-z]+\s+)*0?777\b`),
	},
	{
		label: "pipe remote content into a shell",
		re:    regexp.MustCompile(`(?i)\b(?:curl|wget)\b[^|]*\|\s*(?:sudo\s+)?(?:ba|z|da)?sh\b`),
	},
	{
		label: "eval of fetched content",
		re:    regexp.MustCompile(`(?i)\beval\s+[^;]*\$\(\s*(?:curl|wget)\b`),
	},
	{
		label: "decode and execute",
		re:    regexp.MustCompile(`(?i)\bbase64\s+(?:-d|--decode)\b[^|]*\|\s*(?:ba|z|da)?sh\b`),
	},
}

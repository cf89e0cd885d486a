package utils

import "regexp"

// Placeholder formats accepted in script bodies. Authors write scripts in
// many styles; all of these substitute to the contact's name:
// {{name}}, [Name], [name], {name}, <name>, <Name>, and runs of
// underscores (___).
var namePlaceholders = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\{\{name\}\}`),
	regexp.MustCompile(`\[Name\]`),
	regexp.MustCompile(`\[name\]`),
	regexp.MustCompile(`(?i)\{name\}`),
	regexp.MustCompile(`(?i)<name>`),
	regexp.MustCompile(`___+`),
}

// Personalize substitutes every recognized name placeholder in the script
// body with the contact's name.
func Personalize(body, contactName string) string {
	out := body
	for _, re := range namePlaceholders {
		out = re.ReplaceAllString(out, contactName)
	}
	return out
}

package validation

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ShortIDPattern defines the valid short ID format: the output shape of Slugify.
var ShortIDPattern = regexp.MustCompile(`^[a-z0-9_]+(-[a-z0-9_]+)*$`)

// MaxShortIDLength caps short IDs so they stay usable in URLs.
const MaxShortIDLength = 100

var (
	whitespaceRun = regexp.MustCompile(`[\s\p{Zs}]+`)
	nonWord       = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
	hyphenRun     = regexp.MustCompile(`-{2,}`)
	folderSegment = regexp.MustCompile(`folders/([a-zA-Z0-9_-]+)`)

	// Letters that carry no combining mark, so NFD leaves them alone.
	letterFolding = strings.NewReplacer(
		"đ", "d",
		"ð", "d",
		"ß", "ss",
		"æ", "ae",
		"ø", "o",
		"œ", "oe",
		"ł", "l",
		"þ", "th",
		"ı", "i",
	)
)

// Slugify turns an arbitrary title into a URL-safe short ID.
// "  Đà Lạt Trip!! " becomes "da-lat-trip".
func Slugify(text string) string {
	s := strings.ToLower(text)
	s = stripMarks(s)
	s = letterFolding.Replace(s)
	s = strings.TrimSpace(s)
	s = whitespaceRun.ReplaceAllString(s, "-")
	s = nonWord.ReplaceAllString(s, "")
	s = hyphenRun.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// stripMarks decomposes accented characters and drops the combining marks.
// The chain is stateful, so a fresh one is built per call.
func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// ValidateShortID checks if a short ID is non-empty, bounded and already normalized.
func ValidateShortID(shortID string) bool {
	if shortID == "" || len(shortID) > MaxShortIDLength {
		return false
	}
	return ShortIDPattern.MatchString(shortID)
}

// ExtractFolderID returns the bare folder ID from a pasted folder URL such as
// https://drive.google.com/drive/folders/<id>?usp=sharing. Anything without a
// folders/<id> segment is returned trimmed but otherwise untouched.
func ExtractFolderID(ref string) string {
	ref = strings.TrimSpace(ref)
	if m := folderSegment.FindStringSubmatch(ref); m != nil {
		return m[1]
	}
	return ref
}

// ValidateURL checks if a URL is valid and uses an allowed scheme (http/https only).
func ValidateURL(urlStr string) (bool, string) {
	if urlStr == "" {
		return false, "URL is required"
	}

	u, err := url.Parse(urlStr)
	if err != nil {
		return false, "Invalid URL format"
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return false, "URL must use http:// or https:// scheme"
	}

	if u.Host == "" {
		return false, "URL must have a valid host"
	}

	return true, ""
}

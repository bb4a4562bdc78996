// Package redact identifies and masks credential-looking values in server
// environments, log attributes, and exported stacks.
package redact

import (
	"math"
	"net/url"
	"sort"
	"strings"
	"unicode"
)

// SecretKeyPatterns contains substrings that indicate a key likely contains sensitive data.
// Keys are matched case-insensitively.
var SecretKeyPatterns = []string{
	"TOKEN",
	"KEY",
	"SECRET",
	"PASSWORD",
	"PASSWD",
	"AUTH",
	"CREDENTIAL",
	"BEARER",
	"PRIVATE",
	"SESSION",
	"COOKIE",
}

// TokenPrefixes contains known API token prefixes that indicate sensitive values
// regardless of key name.
var TokenPrefixes = []string{
	"ghp_",        // GitHub personal access token
	"gho_",        // GitHub OAuth token
	"ghu_",        // GitHub user-to-server token
	"ghs_",        // GitHub server-to-server token
	"ghr_",        // GitHub refresh token
	"github_pat_", // GitHub fine-grained token
	"sk-",         // OpenAI/Anthropic keys
	"pk-",
	"AKIA", // AWS access key prefix
	"xoxb-",
	"xoxp-",
	"xoxa-",
	"xoxr-",
	"secret_", // Notion integration secret
	"ntn_",
	"lin_api_", // Linear
	"glpat-",   // GitLab
	"AIza",     // Google API key
	"Bearer ",
}

const (
	// minEntropyLength is the shortest value considered by the entropy check.
	minEntropyLength = 20
	// entropyThreshold is in bits per character.
	entropyThreshold = 3.5
)

// MaskSecrets returns a copy of env with sensitive values masked.
func MaskSecrets(env map[string]string) map[string]string {
	if env == nil {
		return nil
	}

	masked := make(map[string]string, len(env))
	for k, v := range env {
		if IsSensitive(k, v) {
			masked[k] = MaskValue(v)
		} else {
			masked[k] = v
		}
	}
	return masked
}

// MaskValue masks a potentially sensitive string value.
// Values with 4 or fewer characters are fully masked as "********".
// Longer values show the last 4 characters: "****xxxx".
func MaskValue(value string) string {
	if len(value) <= 4 {
		return "********"
	}
	return "****" + value[len(value)-4:]
}

// MaskURL redacts the password of URLs with embedded credentials.
// If the URL cannot be parsed, it is returned unchanged.
func MaskURL(rawURL string) string {
	if rawURL == "" {
		return rawURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.User == nil {
		return rawURL
	}

	password, hasPassword := parsed.User.Password()
	if !hasPassword || password == "" {
		return rawURL
	}

	parsed.User = url.UserPassword(parsed.User.Username(), MaskValue(password))
	return parsed.String()
}

// ShouldMask returns true if the key name suggests it contains sensitive data.
// Matching is case-insensitive.
func ShouldMask(key string) bool {
	upper := strings.ToUpper(key)
	for _, pattern := range SecretKeyPatterns {
		if strings.Contains(upper, pattern) {
			return true
		}
	}
	return false
}

// ContainsTokenPrefix returns true if the value starts with a known token prefix.
func ContainsTokenPrefix(value string) bool {
	for _, prefix := range TokenPrefixes {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}

// LooksHighEntropy reports whether value resembles a random credential:
// long, free of whitespace, and with a Shannon entropy above the threshold.
// Paths and URLs are excluded.
func LooksHighEntropy(value string) bool {
	if len(value) < minEntropyLength {
		return false
	}
	if strings.ContainsAny(value, "/\\") || strings.Contains(value, "://") {
		return false
	}
	for _, r := range value {
		if unicode.IsSpace(r) {
			return false
		}
	}
	return shannonEntropy(value) >= entropyThreshold
}

// IsSensitive combines the key, prefix, and entropy checks.
func IsSensitive(key, value string) bool {
	if value == "" {
		return false
	}
	return ShouldMask(key) || ContainsTokenPrefix(value) || LooksHighEntropy(value)
}

// StripEnv removes every sensitive or explicitly listed entry from env.
// It returns the remaining environment and the sorted union of listed and
// detected secret keys.
func StripEnv(env map[string]string, listed []string) (map[string]string, []string) {
	secret := make(map[string]struct{}, len(listed))
	for _, k := range listed {
		secret[k] = struct{}{}
	}

	clean := make(map[string]string, len(env))
	for k, v := range env {
		if _, ok := secret[k]; ok {
			continue
		}
		if IsSensitive(k, v) {
			secret[k] = struct{}{}
			continue
		}
		clean[k] = v
	}

	keys := make([]string, 0, len(secret))
	for k := range secret {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return clean, keys
}

func shannonEntropy(s string) float64 {
	counts := make(map[rune]int)
	total := 0
	for _, r := range s {
		counts[r]++
		total++
	}
	var h float64
	for _, c := range counts {
		p := float64(c) / float64(total)
		h -= p * math.Log2(p)
	}
	return h
}

package intent

import (
	"regexp"
	"strings"
)

var (
	tokenPattern  = regexp.MustCompile(`[a-z0-9][a-z0-9._/-]*`)
	digitsPattern = regexp.MustCompile(`[0-9]+`)
	reasonPattern = regexp.MustCompile(`\bbecause\s+(.+)$`)
)

// vocabulary holds command words that never name a branch, build, target or
// api on their own.
var vocabulary = map[string]bool{
	"a": true, "an": true, "and": true, "the": true, "my": true, "me": true,
	"to": true, "for": true, "of": true, "on": true, "in": true, "into": true,
	"from": true, "with": true, "is": true, "what": true, "please": true,
	"new": true, "now": true, "it": true,
	"approve": true, "approvals": true, "build": true, "builds": true,
	"branch": true, "deploy": true, "deployment": true, "release": true,
	"push": true, "trigger": true, "create": true, "open": true, "pull": true,
	"request": true, "pr": true, "show": true, "list": true, "pending": true,
	"recent": true, "check": true, "status": true, "orchestrate": true,
	"smart": true, "intelligent": true, "analyze": true, "analysis": true,
	"safety": true, "readiness": true, "abort": true, "stop": true,
	"cancel": true, "generate": true, "report": true, "rewards": true,
	"details": true, "service": true, "api": true, "production": true,
	"staging": true, "because": true,
}

// Extract derives command parameters from normalized text and the shape of the
// pattern that matched it. Later rules overwrite earlier ones for the same key:
//
//  1. "approve build X" binds X to buildId.
//  2. a digit-capturing pattern binds the token holding the first digit run to buildId.
//  3. a word-capturing pattern binds the first content word to apiName, target
//     or branch depending on the words around it.
//  4. "production" or "staging" binds target.
//  5. "main"/"master" or "develop" binds branch.
//
// A word guessed as target in step 3 and displaced by step 4 moves to branch.
// A trailing "because ..." clause binds reason. Extract is pure.
func Extract(text string, pattern *Pattern) map[string]string {
	params := make(map[string]string)

	body, reason := splitReason(text)
	if reason != "" {
		params[ParamReason] = reason
	}

	tokens := tokenize(body)
	has := func(word string) bool {
		for _, t := range tokens {
			if t == word {
				return true
			}
		}
		return false
	}

	if has("approve") && has("build") {
		for i := 0; i+2 < len(tokens); i++ {
			if tokens[i] == "approve" && tokens[i+1] == "build" && !vocabulary[tokens[i+2]] {
				params[ParamBuildID] = canonicalBuildID(tokens[i+2])
				break
			}
		}
	}

	if pattern != nil && pattern.digitGroup {
		for _, t := range tokens {
			if digitsPattern.MatchString(t) {
				params[ParamBuildID] = canonicalBuildID(t)
				break
			}
		}
	}

	var guessedTarget string
	if pattern != nil && pattern.wordGroup {
		if word := firstContentWord(tokens); word != "" {
			switch {
			case has("api"):
				params[ParamAPIName] = word
			case has("production") || has("staging"):
				params[ParamTarget] = word
				guessedTarget = word
			default:
				params[ParamBranch] = word
			}
		}
	}

	switch {
	case has("production"):
		params[ParamTarget] = "production"
	case has("staging"):
		params[ParamTarget] = "staging"
	}
	if guessedTarget != "" && params[ParamTarget] != guessedTarget {
		if _, ok := params[ParamBranch]; !ok {
			params[ParamBranch] = guessedTarget
		}
	}

	switch {
	case has("main") || has("master"):
		params[ParamBranch] = "main"
	case has("develop"):
		params[ParamBranch] = "develop"
	}

	return params
}

// splitReason separates a trailing "because ..." clause from the command.
func splitReason(text string) (command, reason string) {
	m := reasonPattern.FindStringSubmatchIndex(text)
	if m == nil {
		return text, ""
	}
	return strings.TrimSpace(text[:m[0]]), strings.TrimSpace(text[m[2]:m[3]])
}

func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(text, -1)
	tokens := raw[:0]
	for _, t := range raw {
		if t = strings.TrimRight(t, "._/-"); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

func firstContentWord(tokens []string) string {
	for _, t := range tokens {
		if !vocabulary[t] {
			return t
		}
	}
	return ""
}

// canonicalBuildID upper-cases a spoken build id so "prod-1001" and
// "PROD-1001" name the same build.
func canonicalBuildID(token string) string {
	return strings.ToUpper(token)
}

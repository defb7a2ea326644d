package model

// AccessControlList — allow/deny правила авторизации подключений.
// Шаблоны сравниваются с канонической строкой XPlatformID,
// '*' покрывает любую подстроку, '?' — один символ. Deny побеждает.
type AccessControlList struct {
	Allow []string `json:"allow"`
	Deny  []string `json:"deny"`
}

// DefaultAccessControlList permits everyone.
func DefaultAccessControlList() *AccessControlList {
	return &AccessControlList{Allow: []string{"*"}}
}

// Authorized reports whether the identity passes the list:
// it must match an allow pattern and no deny pattern.
func (acl *AccessControlList) Authorized(id XPlatformID) bool {
	key := id.String()
	for _, p := range acl.Deny {
		if wildcardMatch(p, key) {
			return false
		}
	}
	for _, p := range acl.Allow {
		if wildcardMatch(p, key) {
			return true
		}
	}
	return false
}

// wildcardMatch matches s against pattern with '*' and '?' metacharacters.
// Iterative backtracking over the last '*' position.
func wildcardMatch(pattern, s string) bool {
	pi, si := 0, 0
	star, mark := -1, 0
	for si < len(s) {
		switch {
		case pi < len(pattern) && (pattern[pi] == '?' || pattern[pi] == s[si]):
			pi++
			si++
		case pi < len(pattern) && pattern[pi] == '*':
			star = pi
			mark = si
			pi++
		case star >= 0:
			pi = star + 1
			mark++
			si = mark
		default:
			return false
		}
	}
	for pi < len(pattern) && pattern[pi] == '*' {
		pi++
	}
	return pi == len(pattern)
}

package rank

import (
	"fmt"
	"regexp"
	"strings"
)

var permissionPattern = regexp.MustCompile(`^[a-z]+(\.[a-z]+)*$`)

// Permission is an immutable dotted-namespace identifier, e.g.
// "servercore.commands.tp.ask". A permission grants itself and every
// permission beneath its namespace, so granting "servercore.commands.tp"
// also grants "servercore.commands.tp.ask".
type Permission struct {
	id string
}

// ParsePermission validates and wraps a permission id. Construction is the
// only validation point; a zero Permission never leaves this package.
func ParsePermission(id string) (Permission, error) {
	if !permissionPattern.MatchString(id) {
		switch {
		case id == "":
			return Permission{}, fmt.Errorf("%w: empty id", ErrInvalidPermission)
		case strings.HasPrefix(id, "."):
			return Permission{}, fmt.Errorf("%w: %q must not start with a dot", ErrInvalidPermission, id)
		case strings.HasSuffix(id, "."):
			return Permission{}, fmt.Errorf("%w: %q must not end with a dot", ErrInvalidPermission, id)
		default:
			return Permission{}, fmt.Errorf("%w: %q contains invalid characters", ErrInvalidPermission, id)
		}
	}
	return Permission{id: id}, nil
}

// MustPermission is for compile-time constant permission nodes.
func MustPermission(id string) Permission {
	p, err := ParsePermission(id)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Permission) Id() string {
	return p.id
}

func (p Permission) String() string {
	return p.id
}

// IsAncestorOf reports whether p's namespace is a strict prefix of other's.
// A permission is never its own ancestor.
func (p Permission) IsAncestorOf(other Permission) bool {
	return strings.HasPrefix(other.id, p.id+".")
}

// Grants reports whether holding p satisfies a check for other.
// Equality counts; so does being an ancestor.
func (p Permission) Grants(other Permission) bool {
	return p.id == other.id || p.IsAncestorOf(other)
}

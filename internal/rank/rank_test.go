package rank

import (
	"errors"
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestNewRank(t *testing.T) {
	tests := map[string]struct {
		id     string
		expErr error
	}{
		"valid":      {id: "moderator"},
		"empty":      {id: "", expErr: ErrInvalidRankId},
		"whitespace": {id: "mod erator", expErr: ErrInvalidRankId},
		"uppercase":  {id: "Moderator", expErr: ErrInvalidRankId},
		"reserved":   {id: "default", expErr: ErrReservedRank},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			r, err := New(tt.id, "Moderator", "[Mod] ", 10)
			if tt.expErr != nil {
				if !errors.Is(err, tt.expErr) {
					t.Fatalf("expected %v, got %v", tt.expErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "id", r.Id(), tt.id)
			testutil.AssertEqual(t, "kind", r.Kind(), KindUser)
			testutil.AssertEqual(t, "priority", r.Priority(), 10)
		})
	}
}

func TestRankHasPermission(t *testing.T) {
	r, err := New("moderator", "Moderator", "[Mod] ", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r.AddPermission(MustPermission("servercore.commands.tp"))

	testutil.AssertEqual(t, "exact", r.HasPermission(MustPermission("servercore.commands.tp")), true)
	testutil.AssertEqual(t, "child", r.HasPermission(MustPermission("servercore.commands.tp.ask")), true)
	testutil.AssertEqual(t, "parent", r.HasPermission(MustPermission("servercore.commands")), false)
	testutil.AssertEqual(t, "unrelated", r.HasPermission(MustPermission("servercore.ranks")), false)

	r.RemovePermission(MustPermission("servercore.commands.tp"))
	testutil.AssertEqual(t, "after remove", r.HasPermission(MustPermission("servercore.commands.tp.ask")), false)
}

func TestDefaultRankPriorityImmutable(t *testing.T) {
	def := NewDefault("Default", "&8[&7Default&8] ", nil)

	testutil.AssertEqual(t, "is default", def.IsDefault(), true)
	testutil.AssertEqual(t, "priority", def.Priority(), 0)

	err := def.SetPriority(5)
	if !errors.Is(err, ErrImmutableRank) {
		t.Fatalf("expected ErrImmutableRank, got %v", err)
	}
	testutil.AssertEqual(t, "priority unchanged", def.Priority(), 0)

	r, _ := New("vip", "VIP", "[VIP] ", 1)
	if err := r.SetPriority(7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "user rank priority", r.Priority(), 7)
}

func TestRankSpecRoundTrip(t *testing.T) {
	r, err := New("admin", "Admin", "&4[Admin] ", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r.AddPermission(MustPermission("servercore.ranks"))
	r.AddPermission(MustPermission("servercore.commands.tp.ask"))

	spec := r.Spec()
	testutil.AssertEqual(t, "spec name", spec.Name, "Admin")
	testutil.AssertEqual(t, "spec permissions", len(spec.Permissions), 2)

	back, err := FromSpec("admin", spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "prefix", back.Prefix(), "&4[Admin] ")
	testutil.AssertEqual(t, "priority", back.Priority(), 100)
	testutil.AssertEqual(t, "has perm", back.HasPermission(MustPermission("servercore.ranks.edit")), true)
}

func TestFromSpecDefault(t *testing.T) {
	spec := &Spec{Name: "Default", Prefix: "&8[&7Default&8] ", Priority: 3, Permissions: []string{"servercore.commands.tp.ask"}}

	def, err := FromSpec("default", spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "kind", def.IsDefault(), true)
	// The default rank is always baseline, whatever the file says.
	testutil.AssertEqual(t, "priority", def.Priority(), 0)
}

func TestSpecValidate(t *testing.T) {
	tests := map[string]struct {
		spec   Spec
		expErr string
	}{
		"valid":          {spec: Spec{Name: "VIP", Permissions: []string{"a.b"}}},
		"missing name":   {spec: Spec{Permissions: []string{"a.b"}}, expErr: "name must be set"},
		"bad permission": {spec: Spec{Name: "VIP", Permissions: []string{"A.B"}}, expErr: "invalid permission"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

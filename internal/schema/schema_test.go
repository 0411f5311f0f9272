package schema

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemapanel/internal/cond"
)

func loadTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := Load(filepath.Join("testdata", "entities.yaml"))
	require.NoError(t, err)
	return reg
}

func TestLoad_MapDocument(t *testing.T) {
	reg := loadTestRegistry(t)
	assert.Equal(t, []string{"customers", "partners"}, reg.Names())

	c, err := reg.Get("Customers")
	require.NoError(t, err)
	assert.Equal(t, "customers", c.Name)
	assert.True(t, c.Scopes.Create)
	assert.Empty(t, c.Scopes.CreateFields)
	assert.True(t, c.Scopes.Delete)
	require.Len(t, c.ReadRoutes, 2)
	assert.True(t, c.ReadRoutes[1].BelongsToUserID)

	p, err := reg.Get("partners")
	require.NoError(t, err)
	assert.Equal(t, []string{"issue", "status"}, p.Scopes.CreateFields)
	assert.False(t, p.Scopes.Delete)
}

func TestDecode_EntitiesList(t *testing.T) {
	src := `
entities:
  - name: users
    scopes:
      read: [id, username, type]
      update: [type]
`
	entities, err := Decode(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "users", entities[0].Name)
	assert.Equal(t, []string{"type"}, entities[0].UpdateFields())
}

func TestDecode_BadCreateScope(t *testing.T) {
	_, err := Decode(strings.NewReader("x:\n  scopes:\n    create: {a: 1}\n"))
	require.Error(t, err)
}

func TestRegistry_GetUnknown(t *testing.T) {
	reg := loadTestRegistry(t)
	_, err := reg.Get("orders")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaNotFound))

	var nilReg *Registry
	_, err = nilReg.Get("customers")
	assert.ErrorIs(t, err, ErrSchemaNotFound)
}

func TestRegistry_Duplicate(t *testing.T) {
	_, err := NewRegistry(&EntitySchema{Name: "a"}, &EntitySchema{Name: "A"})
	require.Error(t, err)
}

func TestRegistry_NamesIsCopy(t *testing.T) {
	reg := loadTestRegistry(t)
	names := reg.Names()
	names[0] = "mutated"
	assert.Equal(t, "customers", reg.Names()[0])
}

func TestRegistry_SchemasAreFrozen(t *testing.T) {
	in := &EntitySchema{
		Name:    "orders",
		Options: map[string][]string{"a": {"x", "y"}},
		ConditionalOptions: map[string][]ConditionalRule{
			"b": {{Condition: "a == x", Options: []string{"1"}}},
		},
		Scopes:     Scopes{Read: []string{"a", "b"}, Update: []string{"a"}},
		ReadRoutes: []ReadRoute{{Key: "all"}},
	}
	reg, err := NewRegistry(in)
	require.NoError(t, err)

	in.Options["a"][0] = "changed"
	in.Scopes.Read = append(in.Scopes.Read, "zzz")
	in.ConditionalOptions["b"][0].Options[0] = "changed"

	got, err := reg.Get("orders")
	require.NoError(t, err)
	got.Options["a"] = []string{"HACKED"}
	got.Scopes.Update[0] = "b"
	got.ReadRoutes[0].Key = "hacked"

	again, err := reg.Get("orders")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, again.Options["a"])
	assert.Equal(t, []string{"a", "b"}, again.Scopes.Read)
	assert.Equal(t, []string{"a"}, again.Scopes.Update)
	assert.Equal(t, []string{"1"}, again.ConditionalOptions["b"][0].Options)
	assert.Equal(t, "all", again.ReadRoutes[0].Key)
}

func TestFields_SystemFieldsStripped(t *testing.T) {
	reg := loadTestRegistry(t)
	c, _ := reg.Get("customers")

	assert.Equal(t, []string{"mobile", "issue", "status", "channel", "follow_up_date"}, c.CreateFields())
	assert.Equal(t, []string{"mobile", "issue", "status", "channel", "follow_up_date"}, c.UpdateFields())
	assert.True(t, c.CanUpdate("mobile"))
	assert.False(t, c.CanUpdate("updated_at"))
}

func TestDynamicOptions_FirstMatchWins(t *testing.T) {
	e := &EntitySchema{
		Name: "t",
		ConditionalOptions: map[string][]ConditionalRule{
			"status": {
				{Condition: "issue == A", Options: []string{"first"}},
				{Condition: "issue == A", Options: []string{"second"}},
			},
		},
	}
	ev := cond.NewEvaluator(nil)

	got := e.DynamicOptions(ev, cond.Binding{"issue": "A"})
	assert.Equal(t, []string{"first"}, got["status"])

	got = e.DynamicOptions(ev, cond.Binding{"issue": "Q"})
	_, has := got["status"]
	assert.False(t, has)
}

func TestResolveOptions_Precedence(t *testing.T) {
	reg := loadTestRegistry(t)
	c, _ := reg.Get("customers")
	p, _ := reg.Get("partners")
	ev := cond.NewEvaluator(nil)

	dyn := c.DynamicOptions(ev, cond.Binding{"issue": "B"})
	assert.Equal(t, FieldOptions{Kind: KindSelect, Options: []string{"Y1", "Y2", "Y3"}, Dynamic: true}, c.ResolveOptions("status", dyn))
	assert.Equal(t, FieldOptions{Kind: KindMulti, Options: []string{"email", "sms", "call"}}, c.ResolveOptions("channel", dyn))
	assert.Equal(t, FieldOptions{Kind: KindSelect, Options: []string{"A", "B", "C"}}, c.ResolveOptions("issue", dyn))
	assert.Equal(t, FieldOptions{Kind: KindText}, c.ResolveOptions("mobile", dyn))

	// XOR-группа главнее динамических опций
	assert.Equal(t, FieldOptions{Kind: KindSelect, Options: []string{"X", "Y"}}, p.ResolveOptions("status", map[string][]string{"status": {"dyn"}}))
}

func TestParseOptionKey(t *testing.T) {
	cases := []struct {
		key   string
		field string
		mode  Combination
	}{
		{"status[OR]", "status", CombineOR},
		{"status[XOR]", "status", CombineXOR},
		{"status", "status", CombineNone},
	}
	for _, c := range cases {
		f, m := ParseOptionKey(c.key)
		assert.Equal(t, c.field, f)
		assert.Equal(t, c.mode, m)
	}
}

func TestMultiValues(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitMulti("a; b;"))
	assert.Nil(t, SplitMulti(" "))
	assert.Equal(t, "a;b", JoinMulti([]string{"a", "b"}))
}

func TestRoutePath(t *testing.T) {
	reg := loadTestRegistry(t)
	c, _ := reg.Get("customers")

	p, err := c.RoutePath("", "")
	require.NoError(t, err)
	assert.Equal(t, "read/customers", p)

	p, err = c.RoutePath("most-recent-100", "7")
	require.NoError(t, err)
	assert.Equal(t, "read/customers/most-recent-100", p)

	p, err = c.RoutePath("follow-up-overdue", "7")
	require.NoError(t, err)
	assert.Equal(t, "read/customers/follow-up-overdue/7", p)

	_, err = c.RoutePath("follow-up-overdue", "")
	require.Error(t, err)
	_, err = c.RoutePath("nope", "7")
	require.Error(t, err)
}

func TestLint_ReportsInvariants(t *testing.T) {
	e := &EntitySchema{
		Name: "broken",
		Options: map[string][]string{
			"ghost[OR]": {"a"},
		},
		ConditionalOptions: map[string][]ConditionalRule{
			"status": {{Condition: "issue ===== &&& B", Options: []string{"x"}}},
		},
		Scopes: Scopes{
			Read:   []string{"id", "status"},
			Update: []string{"status", "missing"},
		},
		ValidationRules: map[string][]string{
			"status": {"REQUIRED", "NOPE", "CHAR_LENGTH:x"},
		},
		ReadRoutes: []ReadRoute{{Key: "a"}, {Key: "a"}, {Key: "b", Filter: "status ~~ x"}},
	}
	issues := Lint(e)

	codes := map[string]int{}
	for _, it := range issues {
		codes[it.Code]++
	}
	assert.Equal(t, 2, codes["unknown_field"])
	assert.Equal(t, 1, codes["bad_condition"])
	assert.Equal(t, 1, codes["unknown_rule"])
	assert.Equal(t, 1, codes["bad_rule_param"])
	assert.Equal(t, 1, codes["route_key_duplicate"])
	assert.Equal(t, 1, codes["bad_route_filter"])

	_, err := NewRegistry(e)
	var lintErr *LintError
	require.ErrorAs(t, err, &lintErr)
	assert.Len(t, lintErr.Issues, len(issues))
}

func TestLint_SystemFieldsAllowed(t *testing.T) {
	e := &EntitySchema{
		Name:            "ok",
		Scopes:          Scopes{Read: []string{"mobile"}, Update: []string{"mobile", "updated_at"}},
		ValidationRules: map[string][]string{"user_id": {"REQUIRED"}},
	}
	assert.Empty(t, Lint(e))
}

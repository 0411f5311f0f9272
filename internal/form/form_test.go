package form

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"schemapanel/internal/client"
	"schemapanel/internal/schema"
	"schemapanel/internal/validate"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type call struct {
	Op     string
	Entity string
	ID     string
	Fields map[string]string
	UserID string
}

type fakeBackend struct {
	mu      sync.Mutex
	calls   []call
	entered chan struct{}
	release chan struct{}
	err     error
}

func (b *fakeBackend) record(c call) (client.Response, error) {
	b.mu.Lock()
	b.calls = append(b.calls, c)
	b.mu.Unlock()
	if b.entered != nil {
		b.entered <- struct{}{}
		<-b.release
	}
	if b.err != nil {
		return nil, b.err
	}
	return client.Response{"status": "success"}, nil
}

func (b *fakeBackend) Create(_ context.Context, entity string, fields map[string]string, userID string) (client.Response, error) {
	return b.record(call{Op: "create", Entity: entity, Fields: fields, UserID: userID})
}

func (b *fakeBackend) Update(_ context.Context, entity, id string, fields map[string]string, userID string) (client.Response, error) {
	return b.record(call{Op: "update", Entity: entity, ID: id, Fields: fields, UserID: userID})
}

func customers() *schema.EntitySchema {
	return &schema.EntitySchema{
		Name: "customers",
		Options: map[string][]string{
			"issue":       {"A", "B", "C"},
			"channel[OR]": {"email", "sms", "call"},
		},
		ConditionalOptions: map[string][]schema.ConditionalRule{
			"status": {
				{Condition: "issue == A", Options: []string{"X1", "X2"}},
				{Condition: "issue == B", Options: []string{"Y1", "Y2"}},
			},
		},
		Scopes: schema.Scopes{
			Create: true,
			Read:   []string{"id", "mobile", "issue", "status", "channel", "created_at"},
			Update: []string{"issue", "status", "channel"},
		},
		ValidationRules: map[string][]string{
			"mobile": {"REQUIRED", "IS_INDIAN_MOBILE_NUMBER"},
		},
	}
}

func state(t *testing.T, c *Controller, field string) FieldState {
	t.Helper()
	for _, f := range c.Fields() {
		if f.Key == field {
			return f
		}
	}
	t.Fatalf("field %q not in form", field)
	return FieldState{}
}

func TestSet_RecomputesDynamicOptions(t *testing.T) {
	c := New(customers(), ModeCreate, validate.New(), &fakeBackend{})

	assert.Equal(t, schema.KindText, state(t, c, "status").Kind)

	_, err := c.Set("issue", "B")
	require.NoError(t, err)
	st := state(t, c, "status")
	assert.Equal(t, schema.KindSelect, st.Kind)
	assert.True(t, st.Dynamic)
	assert.Equal(t, []string{"Y1", "Y2"}, st.Options)

	_, err = c.Set("issue", "C")
	require.NoError(t, err)
	assert.Equal(t, schema.KindText, state(t, c, "status").Kind)
}

func TestSet_LiveValidation(t *testing.T) {
	c := New(customers(), ModeCreate, validate.New(), &fakeBackend{})

	st, err := c.Set("mobile", "9999999999")
	require.NoError(t, err)
	require.Len(t, st.Errors, 1)
	assert.Equal(t, validate.ErrInvalidPhone, st.Errors[0].Code)

	st, err = c.Set("mobile", "9876543210")
	require.NoError(t, err)
	assert.Empty(t, st.Errors)

	_, err = c.Set("ghost", "x")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestToggleMulti(t *testing.T) {
	c := New(customers(), ModeCreate, validate.New(), &fakeBackend{})

	_, err := c.ToggleMulti("channel", "sms")
	require.NoError(t, err)
	st, err := c.ToggleMulti("channel", "email")
	require.NoError(t, err)
	assert.Equal(t, "sms;email", st.Value)
	assert.Equal(t, []string{"sms", "email"}, st.Selected)

	st, err = c.ToggleMulti("channel", "sms")
	require.NoError(t, err)
	assert.Equal(t, "email", st.Value)

	_, err = c.ToggleMulti("channel", "fax")
	assert.Error(t, err)
	_, err = c.ToggleMulti("issue", "A")
	assert.ErrorIs(t, err, ErrNotMulti)
}

func TestSubmit_CreatePayload(t *testing.T) {
	b := &fakeBackend{}
	c := New(customers(), ModeCreate, validate.New(), b)
	_, _ = c.Set("mobile", "9876543210")
	_, _ = c.Set("issue", "A")
	_, _ = c.Set("status", "X1")

	resp, err := c.Submit(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "success", resp.Status())

	want := []call{{
		Op:     "create",
		Entity: "customers",
		Fields: map[string]string{"mobile": "9876543210", "issue": "A", "status": "X1", "channel": ""},
		UserID: "7",
	}}
	if diff := cmp.Diff(want, b.calls); diff != "" {
		t.Fatalf("backend calls (-want +got):\n%s", diff)
	}
}

func TestSubmit_ValidationBlocks(t *testing.T) {
	b := &fakeBackend{}
	c := New(customers(), ModeCreate, validate.New(), b)

	_, err := c.Submit(context.Background(), "7")
	var ve *validate.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"mobile"}, ve.Fields())
	assert.Empty(t, b.calls)
	assert.Len(t, state(t, c, "mobile").Errors, 1)

	_, err = c.Submit(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoUser)
}

func TestSubmit_EditSendsOnlyUpdatableFields(t *testing.T) {
	b := &fakeBackend{}
	c := New(customers(), ModeEdit, validate.New(), b, WithRecord("42", map[string]string{
		"id": "42", "mobile": "9876543210", "issue": "A", "status": "X1", "channel": "sms",
	}))

	_, err := c.Set("mobile", "9123456780")
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.False(t, state(t, c, "mobile").Editable)

	_, err = c.Set("status", "X2")
	require.NoError(t, err)
	_, err = c.Submit(context.Background(), "7")
	require.NoError(t, err)

	require.Len(t, b.calls, 1)
	assert.Equal(t, "update", b.calls[0].Op)
	assert.Equal(t, "42", b.calls[0].ID)
	assert.Equal(t, map[string]string{"issue": "A", "status": "X2", "channel": "sms"}, b.calls[0].Fields)

	_, err = New(customers(), ModeEdit, validate.New(), b).Submit(context.Background(), "7")
	assert.ErrorIs(t, err, ErrNoRecord)
}

func TestSubmit_Serialized(t *testing.T) {
	b := &fakeBackend{entered: make(chan struct{}), release: make(chan struct{})}
	c := New(customers(), ModeCreate, validate.New(), b)
	_, _ = c.Set("mobile", "9876543210")

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), "7")
		done <- err
	}()
	<-b.entered

	_, err := c.Submit(context.Background(), "7")
	assert.ErrorIs(t, err, ErrSubmitInProgress)

	close(b.release)
	require.NoError(t, <-done)
	assert.Len(t, b.calls, 1)

	// после завершения форма снова принимает отправку
	b.entered = nil
	_, err = c.Submit(context.Background(), "7")
	require.NoError(t, err)
}

func TestSubmit_ClosedFormDiscardsResponse(t *testing.T) {
	b := &fakeBackend{entered: make(chan struct{}), release: make(chan struct{})}
	c := New(customers(), ModeCreate, validate.New(), b)
	_, _ = c.Set("mobile", "9876543210")

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), "7")
		done <- err
	}()
	<-b.entered
	c.Close()
	close(b.release)
	assert.ErrorIs(t, <-done, ErrClosed)
}

func TestSubmit_BackendError(t *testing.T) {
	boom := &client.ServerStatusError{Op: "create", Status: "error", Message: "duplicate mobile"}
	b := &fakeBackend{err: boom}
	c := New(customers(), ModeCreate, validate.New(), b)
	_, _ = c.Set("mobile", "9876543210")

	_, err := c.Submit(context.Background(), "7")
	assert.True(t, errors.Is(err, boom))
}

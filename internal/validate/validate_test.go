package validate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemapanel/internal/schema"
)

func fixedClock() time.Time {
	return time.Date(2024, 6, 15, 13, 30, 0, 0, time.UTC)
}

func codes(errs []FieldError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateField_EmptyReportsOnlyMissing(t *testing.T) {
	e := New()
	errs := e.ValidateField("mobile", "", []string{"REQUIRED", "IS_INDIAN_MOBILE_NUMBER", "IS_NUMERICALLY_PARSEABLE"})
	require.Len(t, errs, 1)
	assert.Equal(t, ErrMissingField, errs[0].Code)
	assert.Equal(t, "mobile is required.", errs[0].Message)
}

func TestValidateField_DistinctDigitFloor(t *testing.T) {
	e := New()
	rules := []string{"REQUIRED", "IS_INDIAN_MOBILE_NUMBER"}

	errs := e.ValidateField("mobile", "9999999999", rules)
	assert.Equal(t, []string{ErrInvalidPhone}, codes(errs))
	assert.Equal(t, "mobile must be a valid Indian mobile number.", errs[0].Message)

	assert.Empty(t, e.ValidateField("mobile", "9876543210", rules))
	assert.Empty(t, e.ValidateField("mobile", "9998887776", rules))
	assert.NotEmpty(t, e.ValidateField("mobile", "9998889998", rules), "only two distinct digits")
	assert.NotEmpty(t, e.ValidateField("mobile", "5876543210", rules), "first digit must be 6-9")
	assert.NotEmpty(t, e.ValidateField("mobile", "987654321", rules), "nine digits")
}

func TestValidateField_CollectsAllViolations(t *testing.T) {
	e := New()
	errs := e.ValidateField("pin", "12a", []string{"CHAR_LENGTH:6", "IS_NUMERICALLY_PARSEABLE"})
	assert.Equal(t, []string{ErrLengthMismatch, ErrNotNumeric}, codes(errs))
	assert.Equal(t, "pin must be 6 characters long.", errs[0].Message)
	assert.Equal(t, "pin must be numerically parseable.", errs[1].Message)
}

func TestValidateField_Numeric(t *testing.T) {
	e := New()
	rules := []string{"IS_NUMERICALLY_PARSEABLE"}
	assert.Empty(t, e.ValidateField("n", " 12.5 ", rules))
	assert.Empty(t, e.ValidateField("n", "-3e2", rules))
	assert.NotEmpty(t, e.ValidateField("n", "NaN", rules))
	assert.NotEmpty(t, e.ValidateField("n", "12,5", rules))
}

func TestValidateField_DateRules(t *testing.T) {
	e := New(WithClock(fixedClock))

	assert.Empty(t, e.ValidateField("d", "2024-06-16", []string{"IS_YYYY-MM-DD", "IS_AFTER_TODAY"}))
	assert.Equal(t, []string{ErrInvalidDateRange}, codes(e.ValidateField("d", "2024-06-15", []string{"IS_AFTER_TODAY"})))
	assert.Equal(t, []string{ErrInvalidDateRange}, codes(e.ValidateField("d", "2024-06-15", []string{"IS_BEFORE_TODAY"})))
	assert.Empty(t, e.ValidateField("d", "2024-06-14", []string{"IS_BEFORE_TODAY"}))

	errs := e.ValidateField("d", "15/06/2024", []string{"IS_YYYY-MM-DD", "IS_AFTER_TODAY"})
	assert.Equal(t, []string{ErrInvalidDateFormat, ErrInvalidDateRange}, codes(errs))
	assert.Equal(t, "d must be in YYYY-MM-DD format.", errs[0].Message)

	assert.Equal(t, []string{ErrInvalidDateFormat}, codes(e.ValidateField("d", "2024-02-30", []string{"IS_YYYY-MM-DD"})))
}

func TestValidateField_UnknownRuleIgnored(t *testing.T) {
	assert.Empty(t, New().ValidateField("x", "v", []string{"IS_PRIME", "CHAR_LENGTH:abc"}))
}

func customers() *schema.EntitySchema {
	return &schema.EntitySchema{
		Name: "customers",
		Scopes: schema.Scopes{
			Read:   []string{"mobile", "name", "notes"},
			Update: []string{"mobile", "name", "notes"},
		},
		ValidationRules: map[string][]string{
			"mobile": {"REQUIRED", "IS_INDIAN_MOBILE_NUMBER"},
			"name":   {"REQUIRED"},
		},
		QualityChecks: map[string][]string{
			"mobile": {"is a real number"},
			"name":   {"is a human name", "is not offensive"},
			"notes":  {"is polite"},
		},
	}
}

func TestValidate_QualityOnlyAfterRulesPass(t *testing.T) {
	var n atomic.Int32
	checker := CheckerFunc(func(_ context.Context, field, _, criterion string) (bool, error) {
		n.Add(1)
		return criterion != "is not offensive", nil
	})
	e := New(WithQualityChecker(checker), WithConcurrency(1))

	res := e.Validate(context.Background(), customers(), map[string]string{
		"mobile": "",
		"name":   "Asha",
		"notes":  "thanks",
	}, "mobile", "name", "notes")

	// mobile провалил REQUIRED, поэтому его критерий не отправлялся
	assert.Equal(t, int32(3), n.Load())
	require.False(t, res.OK())
	assert.Equal(t, []string{ErrMissingField, ErrQualityCheck}, codes(res.Errors))
	assert.Equal(t, "name does not meet the criterion: is not offensive", res.Errors[1].Message)

	var ve *ValidationError
	require.ErrorAs(t, res.Err(), &ve)
	assert.Equal(t, []string{"mobile", "name"}, ve.Fields())
}

func TestValidate_CheckerErrorIsFailure(t *testing.T) {
	boom := errors.New("connection reset")
	e := New(WithQualityChecker(CheckerFunc(func(context.Context, string, string, string) (bool, error) {
		return false, boom
	})))
	res := e.Validate(context.Background(), customers(), map[string]string{"mobile": "9876543210", "name": "Asha"}, "mobile")
	require.Len(t, res.Errors, 1)
	assert.Equal(t, ErrQualityCheckError, res.Errors[0].Code)
	assert.Equal(t, "Error evaluating is a real number: connection reset", res.Errors[0].Message)
}

func TestValidate_ResultsKeepCriterionOrder(t *testing.T) {
	e := New(WithQualityChecker(CheckerFunc(func(_ context.Context, _, _, criterion string) (bool, error) {
		if criterion == "is a human name" {
			time.Sleep(20 * time.Millisecond)
		}
		return false, nil
	})), WithConcurrency(4))
	res := e.Validate(context.Background(), customers(), map[string]string{"name": "x"}, "name")
	assert.Equal(t, []string{
		"name does not meet the criterion: is a human name",
		"name does not meet the criterion: is not offensive",
	}, res.Messages())
}

func TestValidate_DefaultFieldOrder(t *testing.T) {
	res := New().Validate(context.Background(), customers(), map[string]string{})
	assert.Equal(t, []string{"mobile", "name"}, (res.Err().(*ValidationError)).Fields())
	assert.Len(t, res.ByField()["mobile"], 1)
}

func TestValidateSync_SkipsQuality(t *testing.T) {
	e := New(WithQualityChecker(CheckerFunc(func(context.Context, string, string, string) (bool, error) {
		t.Fatal("quality checker must not be called")
		return false, nil
	})))
	res := e.ValidateSync(customers(), map[string]string{"mobile": "9876543210", "name": "Asha"})
	assert.True(t, res.OK())
	assert.NoError(t, res.Err())
}

func TestParseEvaluation(t *testing.T) {
	cases := []struct {
		in   string
		want bool
		err  bool
	}{
		{`{"evaluation": "true"}`, true, false},
		{`{"evaluation": true}`, true, false},
		{`{"evaluation": "false"}`, false, false},
		{"```json\n{\"evaluation\": \"TRUE\"}\n```", true, false},
		{`{"verdict": "true"}`, false, true},
		{`yes`, false, true},
	}
	for _, c := range cases {
		got, err := parseEvaluation(c.in)
		if c.err {
			assert.ErrorIs(t, err, ErrBadEvaluation, c.in)
			continue
		}
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestOpenAIChecker(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		verdict := "true"
		if gotReq.Messages[1].Content == "bad" {
			verdict = "false"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": `{"evaluation": "` + verdict + `"}`}},
			},
		})
	}))
	defer srv.Close()

	c := NewOpenAIChecker(OpenAIConfig{BaseURL: srv.URL + "/v1/", APIKey: "sk-test", Model: "gpt-test"})

	ok, err := c.Check(context.Background(), "name", "good", "is a name")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "gpt-test", gotReq.Model)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Contains(t, gotReq.Messages[0].Content, "meets this criterion 'is a name'")

	ok, err = c.Check(context.Background(), "name", "bad", "is a name")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpenAIChecker_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewOpenAIChecker(OpenAIConfig{BaseURL: srv.URL, APIKey: "k"}).Check(context.Background(), "f", "v", "c")
	var ce *CheckerError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Error(), "HTTP 429")

	_, err = NewOpenAIChecker(OpenAIConfig{BaseURL: srv.URL}).Check(context.Background(), "f", "v", "c")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestNewGeminiChecker_RequiresKey(t *testing.T) {
	_, err := NewGeminiChecker(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

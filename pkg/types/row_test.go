package types

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToString(t *testing.T) {
	t.Parallel()

	tt := []struct {
		name     string
		in       interface{}
		expected string
	}{
		{name: "nil", in: nil, expected: ""},
		{name: "string", in: "abc", expected: "abc"},
		{name: "integral float", in: float64(42), expected: "42"},
		{name: "fractional float", in: 12.5, expected: "12.5"},
		{name: "bool", in: true, expected: "true"},
		{name: "json number", in: json.Number("7.25"), expected: "7.25"},
		{name: "int64", in: int64(-3), expected: "-3"},
		{name: "bytes", in: []byte("raw"), expected: "raw"},
		{name: "nested", in: map[string]interface{}{"a": float64(1)}, expected: `{"a":1}`},
	}

	for i := range tt {
		tc := tt[i]
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.expected, ToString(tc.in))
		})
	}
}

func TestToNumber(t *testing.T) {
	t.Parallel()

	tt := []struct {
		name string
		in   interface{}
		num  float64
		ok   bool
	}{
		{name: "nil", in: nil},
		{name: "float", in: 1.5, num: 1.5, ok: true},
		{name: "numeric string", in: " 10.25 ", num: 10.25, ok: true},
		{name: "partial string", in: "10abc"},
		{name: "empty string", in: ""},
		{name: "bool", in: true},
		{name: "json number", in: json.Number("3"), num: 3, ok: true},
		{name: "int", in: 9, num: 9, ok: true},
		{name: "exponent", in: "1.5e2", num: 150, ok: true},
		{name: "signed", in: "-.5", num: -0.5, ok: true},
		{name: "inf", in: "inf"},
		{name: "infinity", in: "Infinity"},
		{name: "signed inf", in: "+INF"},
		{name: "nan", in: "NaN"},
		{name: "hex float", in: "0x1p4"},
		{name: "overflow", in: "1e999"},
		{name: "bare exponent", in: "1e"},
		{name: "lone point", in: "."},
	}

	for i := range tt {
		tc := tt[i]
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			num, ok := ToNumber(tc.in)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.num, num)
		})
	}
}

func TestTruthy(t *testing.T) {
	t.Parallel()

	require.False(t, Truthy(nil))
	require.False(t, Truthy(""))
	require.False(t, Truthy(false))
	require.False(t, Truthy(float64(0)))
	require.True(t, Truthy("0"))
	require.True(t, Truthy("cus_123"))
	require.True(t, Truthy(float64(2)))
	require.True(t, Truthy(map[string]interface{}{}))
}

func TestRow_Accessors(t *testing.T) {
	t.Parallel()

	var empty Row
	require.Nil(t, empty.Get("id"))
	require.False(t, empty.Has("id"))
	require.NotNil(t, empty.Clone())

	row := Row{"id": float64(1), "name": nil}
	require.True(t, row.Has("id"))
	require.False(t, row.Has("name"))
	require.Equal(t, "1", row.String("id"))

	cp := row.Clone()
	cp["id"] = "changed"
	require.Equal(t, float64(1), row["id"])
}

func TestParseResource(t *testing.T) {
	t.Parallel()

	name, err := ParseResource("user_stats")
	require.NoError(t, err)
	require.Equal(t, ResourceUserStats, name)

	_, err = ParseResource("payments")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnknownResource))
}

func TestResourceSet(t *testing.T) {
	t.Parallel()

	var nilSet *ResourceSet
	require.Empty(t, nilSet.Rows(ResourceUser))
	require.NotNil(t, nilSet.Rows(ResourceUser))

	set := NewResourceSet()
	set.Put(ResourceUser, nil, nil)
	set.Put(ResourceWorkflow, []Row{{"id": "w1"}}, []string{"id"})

	require.True(t, set.Has(ResourceUser))
	require.NotNil(t, set.Rows(ResourceUser))
	require.Len(t, set.Rows(ResourceWorkflow), 1)
	require.Equal(t, []string{"id"}, set.Columns(ResourceWorkflow))
	require.False(t, set.Has(ResourceSession))
	require.Equal(t, 2, set.Len())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	issues := Validate(ResourceUserStats, []Row{
		{"user_id": "u1"},
		{"total_cost": 1.0},
		nil,
	})
	require.Len(t, issues, 2)
	require.Equal(t, 1, issues[0].Row)
	require.Equal(t, "user_stats[1]: missing user_id", issues[0].String())

	require.Nil(t, Validate(ResourceSession, []Row{{}}))
}

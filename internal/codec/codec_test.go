package codec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type theme string

type prefs struct {
	Theme string `json:"theme"`
	Size  int    `json:"size"`
}

func TestRoundTripJSONValues(t *testing.T) {
	values := []any{
		"hello",
		"",
		float64(42),
		true,
		nil,
		[]any{"a", float64(1), false, nil},
		map[string]any{"nested": map[string]any{"list": []any{float64(2)}}},
	}
	decoder := NewDecoder[any]()
	for _, value := range values {
		encoded, err := Encode(value)
		require.NoError(t, err)
		decoded, err := decoder.Decode("k", encoded)
		require.NoError(t, err)
		require.Equal(t, value, decoded)
	}
}

func TestDecodeClassifiesFailures(t *testing.T) {
	_, err := NewDecoder[any]().Decode("k", "hello")
	require.ErrorIs(t, err, ErrMalformed)

	_, err = NewDecoder[any]().Decode("k", "")
	require.ErrorIs(t, err, ErrMalformed)

	_, err = NewDecoder[int]().Decode("k", `"text"`)
	require.ErrorIs(t, err, ErrMismatch)
	require.False(t, errors.Is(err, ErrMalformed))
}

func TestDecodeWrongTypeForAnyParsesAsIs(t *testing.T) {
	got, err := NewDecoder[any]().Decode("k", `{"theme":"dark"}`)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"theme": "dark"}, got)
}

func TestDecodeStruct(t *testing.T) {
	got, err := NewDecoder[prefs]().Decode("k", `{"theme":"dark","size":3}`)
	require.NoError(t, err)
	require.Equal(t, prefs{Theme: "dark", Size: 3}, got)
}

func TestDecodeUseNumber(t *testing.T) {
	got, err := NewDecoder[any](WithUseNumber[any]()).Decode("k", `12`)
	require.NoError(t, err)
	require.Equal(t, "12", got.(interface{ String() string }).String())
}

func TestDecodePostHookRejects(t *testing.T) {
	hookErr := errors.New("invalid")
	decoder := NewDecoder[prefs](WithPostHook(func(key string, value *prefs) error {
		if value.Size < 0 {
			return hookErr
		}
		return nil
	}))
	_, err := decoder.Decode("k", `{"size":-1}`)
	require.ErrorIs(t, err, hookErr)
}

func TestLegacy(t *testing.T) {
	s, ok := Legacy[string]("hello")
	require.True(t, ok)
	require.Equal(t, "hello", s)

	a, ok := Legacy[any]("hello")
	require.True(t, ok)
	require.Equal(t, "hello", a)

	th, ok := Legacy[theme]("dark")
	require.True(t, ok)
	require.Equal(t, theme("dark"), th)

	_, ok = Legacy[int]("hello")
	require.False(t, ok)

	_, ok = Legacy[prefs]("hello")
	require.False(t, ok)
}

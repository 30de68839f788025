package surface

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		el   Element
		want Kind
	}{
		{"text input", Element{Tag: "INPUT", Type: "text"}, KindValueBuffer},
		{"email input", Element{Tag: "input", Type: "email"}, KindValueBuffer},
		{"password input", Element{Tag: "INPUT", Type: "password"}, KindValueBuffer},
		{"search input", Element{Tag: "INPUT", Type: "search"}, KindValueBuffer},
		{"tel input", Element{Tag: "INPUT", Type: "tel"}, KindValueBuffer},
		{"url input", Element{Tag: "INPUT", Type: "URL"}, KindValueBuffer},
		{"textarea", Element{Tag: "TEXTAREA", Type: "textarea"}, KindValueBuffer},
		{"contenteditable div", Element{Tag: "DIV", ContentEditable: "true"}, KindRangeEditable},
		{"inherited editable span", Element{Tag: "SPAN", ContentEditable: "inherit", IsContentEditable: true}, KindRangeEditable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, err := Classify(tt.el)
			require.NoError(t, err)
			assert.Equal(t, tt.want, kind)
		})
	}
}

func TestClassify_Unsupported(t *testing.T) {
	for _, el := range []Element{
		{Tag: "BUTTON", Type: "submit"},
		{Tag: "INPUT", Type: "checkbox"},
		{Tag: "INPUT", Type: "number"},
		// inputs never fall through to the contenteditable check
		{Tag: "INPUT", Type: "date", IsContentEditable: true},
		{Tag: "DIV", ContentEditable: "false"},
	} {
		kind, err := Classify(el)
		assert.ErrorIs(t, err, ErrUnsupportedSurface, "%+v", el)
		assert.Equal(t, KindUnsupported, kind)
	}
}

func TestNew_PicksVariant(t *testing.T) {
	s, err := New("a", Element{Tag: "TEXTAREA"})
	require.NoError(t, err)
	assert.IsType(t, &ValueBuffer{}, s)
	assert.Equal(t, "value-buffer", s.Kind().String())

	s, err = New("b", Element{Tag: "DIV", ContentEditable: "true"})
	require.NoError(t, err)
	assert.IsType(t, &Region{}, s)
	assert.Equal(t, "range-editable", s.Kind().String())

	_, err = New("c", Element{Tag: "BUTTON"})
	assert.ErrorIs(t, err, ErrUnsupportedSurface)
}

func TestValueBuffer(t *testing.T) {
	ctx := context.Background()
	var seen []string
	focused := false
	b := NewValueBuffer("v", OnChange(func(text string) { seen = append(seen, text) }), OnFocus(func() { focused = true }))

	require.NoError(t, b.DeleteBackward(ctx), "delete at position 0 is a no-op")
	require.NoError(t, b.Focus(ctx))
	assert.True(t, focused)
	assert.True(t, b.Focused())

	for _, ch := range "héllo" {
		require.NoError(t, b.InsertCharacter(ctx, ch))
		require.NoError(t, b.NotifyChanged(ctx))
	}
	assert.Equal(t, "héllo", b.Text())

	require.NoError(t, b.DeleteBackward(ctx))
	require.NoError(t, b.NotifyChanged(ctx))
	assert.Equal(t, "héll", b.Text())
	assert.Equal(t, []string{"h", "hé", "hél", "héll", "héllo", "héll"}, seen)
	assert.Equal(t, 6, b.Changes())

	require.NoError(t, b.Clear(ctx))
	require.NoError(t, b.Clear(ctx))
	assert.Equal(t, "", b.Text())
}

func TestRegion_InsertAndDelete(t *testing.T) {
	ctx := context.Background()
	r := NewRegion("r")

	require.NoError(t, r.DeleteBackward(ctx))
	for _, ch := range "cat" {
		require.NoError(t, r.InsertCharacter(ctx, ch))
	}
	assert.Equal(t, "cat", r.Text())

	require.NoError(t, r.DeleteBackward(ctx))
	require.NoError(t, r.InsertCharacter(ctx, 'r'))
	assert.Equal(t, "car", r.Text())
}

func TestRegion_InsertReplacesSelection(t *testing.T) {
	ctx := context.Background()
	r := NewRegion("r")
	for _, ch := range "hello" {
		require.NoError(t, r.InsertCharacter(ctx, ch))
	}

	r.Select(4, 1)
	require.NoError(t, r.InsertCharacter(ctx, 'a'))
	assert.Equal(t, "hao", r.Text())

	// Caret sits right after the inserted node
	require.NoError(t, r.InsertCharacter(ctx, 'l'))
	assert.Equal(t, "halo", r.Text())

	r.Select(-3, 100)
	require.NoError(t, r.InsertCharacter(ctx, 'x'))
	assert.Equal(t, "x", r.Text())

	require.NoError(t, r.Clear(ctx))
	require.NoError(t, r.Clear(ctx))
	assert.Equal(t, "", r.Text())
	require.NoError(t, r.NotifyChanged(ctx))
	assert.Equal(t, 1, r.Changes())
}

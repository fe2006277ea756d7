package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCommand(t *testing.T) {
	assert.True(t, IsCommand("/h"))
	assert.True(t, IsCommand("  /l 3"))
	assert.False(t, IsCommand("hello /h"))
	assert.False(t, IsCommand(""))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Command
	}{
		{"help", "/h", Command{Verb: VerbHelp, Known: true}},
		{"unbind", "/nobb", Command{Verb: VerbUnbind, Known: true}},
		{"list bare", "/l", Command{Verb: VerbList, Known: true}},
		{"list compact", "/l3", Command{Verb: VerbList, Index: 3, HasIndex: true, Known: true}},
		{"list spaced", "/l 3", Command{Verb: VerbList, Index: 3, HasIndex: true, Known: true}},
		{"list multi-digit", "/l12", Command{Verb: VerbList, Index: 12, HasIndex: true, Known: true}},
		{"search", "/s keyword", Command{Verb: VerbSearch, Payload: "keyword", Known: true}},
		{"search keeps spaces inside", "/s two words", Command{Verb: VerbSearch, Payload: "two words", Known: true}},
		{"search digit payload stays payload", "/s3", Command{Verb: VerbSearch, Payload: "3", Known: true}},
		{"search spaced digits stay payload", "/s 42", Command{Verb: VerbSearch, Payload: "42", Known: true}},
		{"append no index", "/a more text", Command{Verb: VerbAppend, Payload: "more text", Known: true}},
		{"append compact index", "/a2 more text", Command{Verb: VerbAppend, Index: 2, HasIndex: true, Payload: "more text", Known: true}},
		{"append spaced index", "/a 2 more text", Command{Verb: VerbAppend, Index: 2, HasIndex: true, Payload: "more text", Known: true}},
		{"prepend", "/f1 hello", Command{Verb: VerbPrepend, Index: 1, HasIndex: true, Payload: "hello", Known: true}},
		{"edit", "/e 4 replacement", Command{Verb: VerbEdit, Index: 4, HasIndex: true, Payload: "replacement", Known: true}},
		{"delete compact", "/d2", Command{Verb: VerbDelete, Index: 2, HasIndex: true, Known: true}},
		{"delete spaced", "/d 2", Command{Verb: VerbDelete, Index: 2, HasIndex: true, Known: true}},
		{"bind", "/b secretkey", Command{Verb: VerbBind, Payload: "secretkey", Known: true}},
		{"unknown verb", "/zzz what", Command{Verb: "/zzz", Payload: "what"}},
		{"leading and trailing space", "  /d 1  ", Command{Verb: VerbDelete, Index: 1, HasIndex: true, Known: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.in)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_NotACommand(t *testing.T) {
	_, ok := Parse("just a note")
	assert.False(t, ok)
	_, ok = Parse("")
	assert.False(t, ok)
}

func TestParse_IndexZeroIsExplicit(t *testing.T) {
	got, ok := Parse("/a 0 text")
	assert.True(t, ok)
	assert.True(t, got.HasIndex)
	assert.Equal(t, uint(0), got.Index)
	assert.Equal(t, "text", got.Payload)
}

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChatContextAnnotation(t *testing.T) {
	var nilCtx *ChatContext
	assert.True(t, nilCtx.Empty())
	assert.Empty(t, nilCtx.Annotation())
	assert.True(t, (&ChatContext{Subject: "  "}).Empty())

	assert.Equal(t, "[Context: subject=H2O]", (&ChatContext{Subject: "H2O"}).Annotation())
	assert.Equal(t, "[Context: subject=NaCl, topic=ionic bonds]",
		(&ChatContext{Subject: "NaCl", Topic: "ionic bonds"}).Annotation())
}

func TestChatContextNormalized(t *testing.T) {
	var nilCtx *ChatContext
	assert.Nil(t, nilCtx.Normalized())
	assert.Nil(t, (&ChatContext{Topic: " \t"}).Normalized())

	assert.Equal(t, &ChatContext{Subject: "CO", Topic: "redox pairs"},
		(&ChatContext{Subject: "  CO ", Topic: "redox \n pairs"}).Normalized())
}

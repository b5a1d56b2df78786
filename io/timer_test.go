package io

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimerDecay(t *testing.T) {
	assert := assert.New(t)

	tm := &Timer{}
	tm.Set(5)
	for n := range 5 {
		assert.True(tm.Active(), "tick %d", n)
		tm.Tick()
	}
	assert.Equal(uint8(0), tm.Value())
	assert.False(tm.Active())

	tm.Tick()
	assert.Equal(uint8(0), tm.Value())
}

func TestTimerReset(t *testing.T) {
	assert := assert.New(t)

	tm := &Timer{}
	tm.Set(0xff)
	tm.Tick()
	assert.Equal(uint8(0xfe), tm.Value())
	tm.Reset()
	assert.Equal(uint8(0), tm.Value())
}

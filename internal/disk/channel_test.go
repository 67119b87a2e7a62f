package disk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestChannel_FIFO(t *testing.T) {
	c := NewChannel[int]()
	for i := 0; i < 100; i++ {
		c.Put(i)
	}
	require.Equal(t, 100, c.Len())
	for i := 0; i < 100; i++ {
		require.Equal(t, i, c.Get())
	}
	require.Zero(t, c.Len())
}

func TestChannel_GetBlocksUntilPut(t *testing.T) {
	c := NewChannel[string]()
	got := make(chan string)
	go func() { got <- c.Get() }()

	select {
	case v := <-got:
		t.Fatalf("Get returned %q on an empty channel", v)
	case <-time.After(20 * time.Millisecond):
	}

	c.Put("page")
	select {
	case v := <-got:
		require.Equal(t, "page", v)
	case <-time.After(time.Second):
		t.Fatal("Get did not wake up after Put")
	}
}

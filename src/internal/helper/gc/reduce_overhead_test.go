// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package gc

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// plainBuffer is a Buffer that does not come from bytebufferpool.
type plainBuffer struct{ bytes.Buffer }

func (p *plainBuffer) ReadFrom(r io.Reader) (int64, error) { return p.Buffer.ReadFrom(r) }

func TestBufferReadFrom(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "Small data", data: "-----BEGIN X509 CRL-----"},
		{name: "Empty reader", data: ""},
		{name: "Large data (10KB)", data: strings.Repeat("0123456789", 1024)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := Default.Get()
			defer func() {
				buf.Reset()
				Default.Put(buf)
			}()

			n, err := buf.ReadFrom(strings.NewReader(tt.data))
			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.data)), n)
			assert.Equal(t, tt.data, string(buf.Bytes()))
		})
	}
}

func TestReadFile(t *testing.T) {
	tests := []struct {
		name     string
		testFunc func(t *testing.T)
	}{
		{
			name: "Existing file",
			testFunc: func(t *testing.T) {
				path := filepath.Join(t.TempDir(), "ca.pem")
				require.NoError(t, os.WriteFile(path, []byte("pem data"), 0o600))

				data, err := ReadFile(path)
				require.NoError(t, err)
				assert.Equal(t, "pem data", string(data))
			},
		},
		{
			name: "Result survives buffer reuse",
			testFunc: func(t *testing.T) {
				path := filepath.Join(t.TempDir(), "crl.pem")
				require.NoError(t, os.WriteFile(path, []byte("first"), 0o600))

				data, err := ReadFile(path)
				require.NoError(t, err)

				buf := Default.Get()
				buf.WriteString("overwrite")
				buf.Reset()
				Default.Put(buf)

				assert.Equal(t, "first", string(data))
			},
		},
		{
			name: "Missing file",
			testFunc: func(t *testing.T) {
				_, err := ReadFile(filepath.Join(t.TempDir(), "missing.pem"))
				assert.ErrorIs(t, err, os.ErrNotExist)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.testFunc(t)
		})
	}
}

func TestPoolConcurrentUse(t *testing.T) {
	const goroutines = 50

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for range goroutines {
		go func() {
			defer wg.Done()
			for range 100 {
				buf := Default.Get()
				buf.WriteString("revocation lookup")
				assert.Equal(t, 17, buf.Len())
				buf.Reset()
				Default.Put(buf)
			}
		}()
	}

	wg.Wait()
}

func TestPoolPutForeignBuffer(t *testing.T) {
	Default.Put(&plainBuffer{})
}

package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spheroids/spheroids/buffer"

	"github.com/golang/protobuf/proto"
	. "github.com/stretchr/testify/require"
)

var (
	testDatFile = filepath.Join(os.TempDir(), "testflush.dat")
	testBuffer  = &buffer.Buffer{
		Data:  []float64{0.6, -0.6, 0.6, 1e-300, 1e300, 0},
		Shape: []int{2, 3},
	}
)

func proto2bytes(b *buffer.Buffer) ([]byte, error) {
	return proto.Marshal(toProto(b))
}

func TestFlush(t *testing.T) {
	if err := Flush(testBuffer, testDatFile); err != nil {
		t.Fatal(err)
	}
}

func TestFlushWithError(t *testing.T) {
	if err := Flush(testBuffer, "/"); err == nil {
		t.Fatal("wasn't supposed to happen")
	}
}

func TestFlushWithInvalidBuffer(t *testing.T) {
	bad := &buffer.Buffer{Data: []float64{1}, Shape: []int{2}}
	if err := Flush(bad, testDatFile); err == nil {
		t.Fatal("expected shape mismatch error")
	}
}

func TestFlushAndBack(t *testing.T) {
	if err := Flush(testBuffer, testDatFile); err != nil {
		t.Fatal(err)
	}

	b, err := Load(testDatFile)
	if err != nil {
		t.Fatal(err)
	} else if !b.Equal(testBuffer) {
		t.Fatal("buffers should be the same")
	}
}

func TestFlushEmpty(t *testing.T) {
	empty, err := buffer.New(0)
	NoError(t, err)
	NoError(t, Flush(empty, testDatFile))

	b, err := Load(testDatFile)
	NoError(t, err)
	Equal(t, []int{0}, b.Shape)
	Equal(t, 0, len(b.Data))
}

func TestWriteCSV(t *testing.T) {
	var out bytes.Buffer
	NoError(t, WriteCSV(&out, testBuffer))
	Equal(t, "0.6,-0.6,0.6\n1e-300,1e+300,0\n", out.String())

	b, err := ReadCSV(&out, false)
	NoError(t, err)
	True(t, b.Equal(testBuffer))
}

func TestWriteCSVVector(t *testing.T) {
	var out bytes.Buffer
	v, err := buffer.Wrap([]float64{1, 2.5}, 2)
	NoError(t, err)
	NoError(t, WriteCSV(&out, v))
	Equal(t, "1\n2.5\n", out.String())
}

func TestWriteCSVWithRank3(t *testing.T) {
	var out bytes.Buffer
	b, err := buffer.New(1, 1, 1)
	NoError(t, err)

	err = WriteCSV(&out, b)
	var shapeErr *buffer.ShapeError
	True(t, errors.As(err, &shapeErr))
	Equal(t, 3, shapeErr.Rank)
}

func TestSaveCSVAndBack(t *testing.T) {
	fileName := filepath.Join(os.TempDir(), "testsave.csv")
	defer os.Remove(fileName)

	NoError(t, SaveCSV(testBuffer, fileName))
	b, err := LoadCSV(fileName, false)
	NoError(t, err)
	True(t, b.Equal(testBuffer))
}

func TestCompressedText(t *testing.T) {
	str, err := ToCompressedText(testBuffer)
	NoError(t, err)
	NotEmpty(t, str)

	b, err := FromCompressedText(str)
	NoError(t, err)
	True(t, b.Equal(testBuffer))
}

func TestFromCompressedTextWithError(t *testing.T) {
	_, err := FromCompressedText("not base64 at all!")
	Error(t, err)

	// valid base64, not zlib
	_, err = FromCompressedText("aGVsbG8gd29ybGQ=")
	Error(t, err)
}

func BenchmarkFlush(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if err := Flush(testBuffer, testDatFile); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCompressedText(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := ToCompressedText(testBuffer); err != nil {
			b.Fatal(err)
		}
	}
}

package storage

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spheroids/spheroids/buffer"
	pb "github.com/spheroids/spheroids/proto"

	"github.com/golang/protobuf/proto"
)

// Flush serializes the buffer to fileName.
func Flush(b *buffer.Buffer, fileName string) error {
	if err := b.Validate(); err != nil {
		return err
	}

	data, err := proto.Marshal(toProto(b))
	if err != nil {
		return fmt.Errorf("error while serializing buffer to %s: %w", fileName, err)
	} else if err = os.WriteFile(fileName, data, 0644); err != nil {
		return fmt.Errorf("error while saving buffer to %s: %w", fileName, err)
	}
	return nil
}

// SaveCSV writes the buffer to fileName as CSV, see WriteCSV.
func SaveCSV(b *buffer.Buffer, fileName string) error {
	fp, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer fp.Close()

	return WriteCSV(fp, b)
}

// WriteCSV writes one record per row of the buffer, a rank 1 buffer is
// written as a single column.
func WriteCSV(w io.Writer, b *buffer.Buffer) error {
	if err := b.Validate(); err != nil {
		return err
	} else if b.Rank() > 2 {
		return &buffer.ShapeError{Rank: b.Rank(), Msg: "only 1D and 2D buffers can be exported as CSV"}
	}

	bw := bufio.NewWriter(w)
	writer := csv.NewWriter(bw)
	rows, cols := b.Dims()
	record := make([]string, cols)
	for i := 0; i < rows; i++ {
		for j, v := range b.Data[i*cols : (i+1)*cols] {
			record[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return bw.Flush()
}

// ToCompressedText encodes the buffer as base64 of its zlib compressed
// protobuf representation.
func ToCompressedText(b *buffer.Buffer) (str string, err error) {
	var buff bytes.Buffer
	var data []byte

	if err = b.Validate(); err != nil {
		return
	} else if data, err = proto.Marshal(toProto(b)); err != nil {
		return
	}

	w := zlib.NewWriter(&buff)
	if _, err = w.Write(data); err != nil {
		return
	} else if err = w.Close(); err != nil {
		return
	}

	str = base64.StdEncoding.EncodeToString(buff.Bytes())
	return
}

// FromCompressedText decodes a buffer encoded with ToCompressedText.
func FromCompressedText(msg string) (b *buffer.Buffer, err error) {
	var m pb.Buffer
	var data []byte
	var rr io.ReadCloser

	if data, err = base64.StdEncoding.DecodeString(msg); err != nil {
	} else if rr, err = zlib.NewReader(bytes.NewReader(data)); err != nil {
	} else if data, err = io.ReadAll(rr); err != nil {
	} else if err = proto.Unmarshal(data, &m); err != nil {
	} else {
		b, err = fromProto(&m)
	}

	if rr != nil {
		rr.Close()
	}
	return
}

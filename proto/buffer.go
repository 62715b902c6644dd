// Package pb holds the wire messages persisted by the storage package.
package pb

import (
	"github.com/golang/protobuf/proto"
)

// Buffer is the wire form of a buffer.Buffer, see buffer.proto.
type Buffer struct {
	Shape []int64   `protobuf:"varint,1,rep,packed,name=shape,proto3" json:"shape,omitempty"`
	Data  []float64 `protobuf:"fixed64,2,rep,packed,name=data,proto3" json:"data,omitempty"`
}

func (m *Buffer) Reset()         { *m = Buffer{} }
func (m *Buffer) String() string { return proto.CompactTextString(m) }
func (*Buffer) ProtoMessage()    {}

func (m *Buffer) GetShape() []int64 {
	if m != nil {
		return m.Shape
	}
	return nil
}

func (m *Buffer) GetData() []float64 {
	if m != nil {
		return m.Data
	}
	return nil
}

// Package msgs defines the events the firmware loop reports.
package msgs

import (
	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/picuart/pkg/framework"
)

// Reportable is a message with a wire encoding and a topic suffix.
type Reportable interface {
	fx.Message
	proto.Message
	// Topic is the topic suffix the message is published under.
	Topic() string
}

// LineReceived is posted for every line echoed by the firmware.
type LineReceived struct {
	Data []byte `protobuf:"bytes,1,opt,name=data,proto3" json:"data,omitempty"`
	// Pending is the number of bytes buffered when the line was read.
	Pending uint32 `protobuf:"varint,2,opt,name=pending,proto3" json:"pending,omitempty"`
}

// NewMessage implements Message.
func (m *LineReceived) NewMessage() fx.Message { return &LineReceived{} }

// Topic implements Reportable.
func (m *LineReceived) Topic() string { return "line" }

// ProtoMessage implements proto.Message.
func (m *LineReceived) ProtoMessage() {}

// Reset implements proto.Message.
func (m *LineReceived) Reset() { *m = LineReceived{} }

// String implements proto.Message.
func (m *LineReceived) String() string { return proto.CompactTextString(m) }

// DataLoss is posted when the receive buffer overflowed and was reset.
type DataLoss struct {
	// Dropped is the total number of bytes dropped so far.
	Dropped uint64 `protobuf:"varint,1,opt,name=dropped,proto3" json:"dropped,omitempty"`
}

// NewMessage implements Message.
func (m *DataLoss) NewMessage() fx.Message { return &DataLoss{} }

// Topic implements Reportable.
func (m *DataLoss) Topic() string { return "dataloss" }

// ProtoMessage implements proto.Message.
func (m *DataLoss) ProtoMessage() {}

// Reset implements proto.Message.
func (m *DataLoss) Reset() { *m = DataLoss{} }

// String implements proto.Message.
func (m *DataLoss) String() string { return proto.CompactTextString(m) }

// Status is a periodic snapshot of the receive buffer.
type Status struct {
	Produced uint64 `protobuf:"varint,1,opt,name=produced,proto3" json:"produced,omitempty"`
	Consumed uint64 `protobuf:"varint,2,opt,name=consumed,proto3" json:"consumed,omitempty"`
	Dropped  uint64 `protobuf:"varint,3,opt,name=dropped,proto3" json:"dropped,omitempty"`
	Pending  uint32 `protobuf:"varint,4,opt,name=pending,proto3" json:"pending,omitempty"`
	Overflow bool   `protobuf:"varint,5,opt,name=overflow,proto3" json:"overflow,omitempty"`
}

// NewMessage implements Message.
func (m *Status) NewMessage() fx.Message { return &Status{} }

// Topic implements Reportable.
func (m *Status) Topic() string { return "status" }

// ProtoMessage implements proto.Message.
func (m *Status) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Status) Reset() { *m = Status{} }

// String implements proto.Message.
func (m *Status) String() string { return proto.CompactTextString(m) }

// Encode marshals a reportable message.
func Encode(m Reportable) ([]byte, error) {
	return proto.Marshal(m)
}

// Decode unmarshals payload into a message of the type named by topic.
func Decode(topic string, payload []byte) (Reportable, error) {
	var m Reportable
	switch topic {
	case "line":
		m = &LineReceived{}
	case "dataloss":
		m = &DataLoss{}
	case "status":
		m = &Status{}
	default:
		return nil, &UnknownTopicError{Topic: topic}
	}
	if err := proto.Unmarshal(payload, m); err != nil {
		return nil, err
	}
	return m, nil
}

// UnknownTopicError is returned by Decode.
type UnknownTopicError struct {
	Topic string
}

// Error implements error.
func (e *UnknownTopicError) Error() string {
	return "unknown message topic: " + e.Topic
}

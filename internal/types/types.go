package types

// Message is one record read from the sensor log, in file order.
type Message struct {
	Channel     string
	Encoding    string // message encoding of the channel, e.g. "ros1" or "cdr"
	Sequence    uint32
	LogTime     uint64 // nanoseconds
	PublishTime uint64 // nanoseconds
	Data        []byte // serialized message, untouched
}

// Frame is one camera image taken from a Message.
type Frame struct {
	Index     int
	Timestamp uint64 // log time of the source message, nanoseconds
	Format    string // image format declared by the message, e.g. "jpeg"
	Payload   []byte // encoded image bytes
	Encoding  string // message encoding of the source message
}

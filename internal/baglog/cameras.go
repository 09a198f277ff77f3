package baglog

import (
	"fmt"
	"os"

	"github.com/andresmejia3/veil/internal/types"
	"github.com/schollz/progressbar/v3"
)

const compressedImageDefinition = `std_msgs/Header header
string format
uint8[] data

================================================================================
MSG: std_msgs/Header
uint32 seq
time stamp
string frame_id
`

const compressedImageDefinitionROS2 = `std_msgs/Header header
string format
uint8[] data

================================================================================
MSG: std_msgs/Header
builtin_interfaces/Time stamp
string frame_id

================================================================================
MSG: builtin_interfaces/Time
int32 sec
uint32 nanosec
`

// CompressedImageChannel defines a camera channel in the given message encoding.
func CompressedImageChannel(topic, encoding string) *Channel {
	if encoding == EncodingCDR {
		return &Channel{
			Topic:           topic,
			MessageEncoding: EncodingCDR,
			SchemaName:      "sensor_msgs/msg/CompressedImage",
			SchemaEncoding:  "ros2msg",
			SchemaData:      []byte(compressedImageDefinitionROS2),
		}
	}
	return &Channel{
		Topic:           topic,
		MessageEncoding: EncodingROS1,
		SchemaName:      "sensor_msgs/CompressedImage",
		SchemaEncoding:  "ros1msg",
		SchemaData:      []byte(compressedImageDefinition),
	}
}

// LoadCameras reads the frames of every camera channel in one pass over the
// log. The result is indexed like cameraChannels; each camera's frames are in
// file order. Every camera channel must have at least one message.
func LoadCameras(path string, cameraChannels []string) ([][]types.Frame, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	index := make(map[string]int, len(cameraChannels))
	for i, ch := range cameraChannels {
		index[ch] = i
	}
	frames := make([][]types.Frame, len(cameraChannels))

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("📼 Reading camera frames"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
	)

	err = r.Messages(func(rec Record) error {
		cam, ok := index[rec.Channel.Topic]
		if !ok {
			return nil
		}
		img, err := DecodeCompressedImage(rec.Encoding, rec.Data)
		if err != nil {
			return fmt.Errorf("%s frame %d: %w", rec.Channel.Topic, len(frames[cam]), err)
		}
		frames[cam] = append(frames[cam], types.Frame{
			Index:     len(frames[cam]),
			Timestamp: rec.LogTime,
			Format:    img.Format,
			Payload:   img.Data,
			Encoding:  rec.Encoding,
		})
		bar.Add(1)
		return nil
	})
	bar.Finish()
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}

	for i, ch := range cameraChannels {
		if len(frames[i]) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrChannelMissing, ch)
		}
	}
	return frames, nil
}

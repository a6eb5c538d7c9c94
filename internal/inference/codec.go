package inference

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/GoSim-25-26J-441/clicksim/pkg/models"
)

// ErrBadTensor is returned for payloads that do not decode into a tensor
var ErrBadTensor = errors.New("bad tensor payload")

// maxRank bounds the header of a decoded tensor
const maxRank = 8

// encodeChannels writes a channel-first tensor as little-endian
// rank, dims, float32 data
func encodeChannels(channels []*models.Grid) ([]byte, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("no channels: %w", ErrBadTensor)
	}
	shape := channels[0].Shape
	dims := append([]int{len(channels)}, shape...)
	size := shape.Size()

	buf := make([]byte, 0, 4*(1+len(dims)+len(channels)*size))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(dims)))
	for _, d := range dims {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(d))
	}
	for i, ch := range channels {
		if !ch.Shape.Equal(shape) {
			return nil, fmt.Errorf("channel %d has shape %v, want %v: %w", i, ch.Shape, shape, ErrBadTensor)
		}
		for _, v := range ch.Data {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
		}
	}
	return buf, nil
}

func decodeChannels(data []byte) ([]*models.Grid, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("payload of %d bytes: %w", len(data), ErrBadTensor)
	}
	rank := int(binary.LittleEndian.Uint32(data))
	if rank < 2 || rank > maxRank {
		return nil, fmt.Errorf("rank %d: %w", rank, ErrBadTensor)
	}
	data = data[4:]
	if len(data) < 4*rank {
		return nil, fmt.Errorf("truncated header: %w", ErrBadTensor)
	}
	dims := make([]int, rank)
	total := 1
	for i := range dims {
		dims[i] = int(binary.LittleEndian.Uint32(data[4*i:]))
		if dims[i] <= 0 {
			return nil, fmt.Errorf("dimension %d is %d: %w", i, dims[i], ErrBadTensor)
		}
		total *= dims[i]
	}
	data = data[4*rank:]
	if len(data) != 4*total {
		return nil, fmt.Errorf("%d data bytes for dims %v: %w", len(data), dims, ErrBadTensor)
	}

	shape := models.Shape(dims[1:])
	size := shape.Size()
	channels := make([]*models.Grid, dims[0])
	for c := range channels {
		g := models.NewGrid(shape)
		for i := range g.Data {
			g.Data[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*(c*size+i):]))
		}
		channels[c] = g
	}
	return channels, nil
}

// EncodeVolume serializes a volume
func EncodeVolume(vol *models.Volume) ([]byte, error) {
	return encodeChannels(vol.Channels)
}

// DecodeVolume parses a serialized volume
func DecodeVolume(data []byte) (*models.Volume, error) {
	channels, err := decodeChannels(data)
	if err != nil {
		return nil, err
	}
	return &models.Volume{Channels: channels}, nil
}

// EncodePrediction serializes a prediction
func EncodePrediction(pred *models.PredictionMap) ([]byte, error) {
	return encodeChannels(pred.Channels)
}

// DecodePrediction parses a serialized prediction
func DecodePrediction(data []byte) (*models.PredictionMap, error) {
	channels, err := decodeChannels(data)
	if err != nil {
		return nil, err
	}
	return &models.PredictionMap{Channels: channels}, nil
}

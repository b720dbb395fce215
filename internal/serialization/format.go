package serialization

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"time"

	"github.com/born-ml/fixpoint/internal/nn"
	"github.com/x448/float16"
	"gonum.org/v1/gonum/mat"
)

const writerVersion = "0.1.0"

// Format constants.
const (
	MagicBytes      = "FPNW"
	FormatVersion   = 1
	HeaderAlignment = 64   // Tensor data starts on a 64-byte boundary
	FixedHeaderSize = 64   // Fixed header size (0x40 bytes)
	ChecksumSize    = 32   // SHA-256 checksum size (32 bytes)
	ChecksumOffset  = 0x20 // Checksum offset in the fixed header
)

// Data type string constants for serialization.
const (
	DTypeFloat64 = "float64"
	DTypeFloat16 = "float16"
)

// Flags for the .fpn format.
const (
	FlagHalfPrecision uint32 = 1 << 0 // bit 0: tensors stored as float16
	FlagHasHistory    uint32 = 1 << 1 // bit 1: training history included
	FlagHasCheckpoint uint32 = 1 << 2 // bit 2: checkpoint metadata included
)

// Header represents the JSON header in a .fpn file.
type Header struct {
	FormatVersion   int               `json:"format_version"`
	FixpointVersion string            `json:"fixpoint_version"`
	RunID           string            `json:"run_id"`
	CreatedAt       time.Time         `json:"created_at"`
	Model           json.RawMessage   `json:"model,omitempty"`      // Model description (models.Spec)
	Tensors         []TensorMeta      `json:"tensors"`              // Tensor metadata
	Metadata        map[string]string `json:"metadata"`             // Custom metadata
	Checkpoint      *CheckpointMeta   `json:"checkpoint,omitempty"` // Training state at save time
	History         json.RawMessage   `json:"history,omitempty"`    // Per-epoch metrics (train.History)
}

// CheckpointMeta contains training state information for checkpoints.
type CheckpointMeta struct {
	Epoch           int            `json:"epoch"`
	Step            int64          `json:"step"`
	TrainLoss       float64        `json:"train_loss"`
	TestLoss        float64        `json:"test_loss"`
	TestAccuracy    float64        `json:"test_accuracy"`
	LR              float64        `json:"lr"`
	Mode            string         `json:"mode"`
	OptimizerType   string         `json:"optimizer_type"`
	OptimizerConfig map[string]any `json:"optimizer_config,omitempty"`
}

// TensorMeta describes a tensor in the .fpn file.
type TensorMeta struct {
	Name   string `json:"name"`   // Parameter name (e.g., "fc_u.weight")
	DType  string `json:"dtype"`  // Storage type ("float64" or "float16")
	Shape  []int  `json:"shape"`  // [rows, cols]
	Offset int64  `json:"offset"` // Bytes from start of tensor data
	Size   int64  `json:"size"`   // Size in bytes
}

// Tensor is a named matrix to be written.
type Tensor struct {
	Name  string
	Value *mat.Dense
}

// FromParameters lists the parameter values in order.
func FromParameters(params []*nn.Parameter) []Tensor {
	out := make([]Tensor, len(params))
	for i, p := range params {
		out[i] = Tensor{Name: p.Name(), Value: p.Value()}
	}
	return out
}

// dtypeSize returns the number of bytes per element of dtype.
func dtypeSize(dtype string) (int, bool) {
	switch dtype {
	case DTypeFloat64:
		return 8, true
	case DTypeFloat16:
		return 2, true
	default:
		return 0, false
	}
}

// encode appends m in row-major order to buf.
func encode(buf []byte, m *mat.Dense, dtype string) []byte {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for _, v := range m.RawRowView(i)[:c] {
			if dtype == DTypeFloat16 {
				buf = binary.LittleEndian.AppendUint16(buf, float16.Fromfloat32(float32(v)).Bits())
			} else {
				buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
			}
		}
	}
	return buf
}

// decode reads a rows x cols matrix from data.
func decode(data []byte, rows, cols int, dtype string) *mat.Dense {
	out := make([]float64, rows*cols)
	for i := range out {
		if dtype == DTypeFloat16 {
			out[i] = float64(float16.Frombits(binary.LittleEndian.Uint16(data[2*i:])).Float32())
		} else {
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[8*i:]))
		}
	}
	return mat.NewDense(rows, cols, out)
}

func padding(pos int64) int64 {
	return (HeaderAlignment - (pos % HeaderAlignment)) % HeaderAlignment
}

package grpcclient

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/example/facecompare/internal/imageprocessor"
	"github.com/example/facecompare/internal/logging"
)

// DetectMethod is the unary RPC served by the face extractor. It takes a
// google.protobuf.BytesValue holding a JPEG and returns a
// google.protobuf.Struct of the form
// {"faces": [{"bbox": [x0, y0, x1, y1], "embedding": [...]}]}.
const DetectMethod = "/faceextractor.v1.FaceExtractor/Detect"

// DialExtractor returns a ready-to-use detector backed by a remote model service.
func DialExtractor(ctx context.Context, addr string, logger *zap.Logger) (imageprocessor.Detector, *grpc.ClientConn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	conn, err := grpc.DialContext(
		dialCtx,
		addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	)
	if err != nil {
		wrapped := logging.NewOperationError("grpcclient.dial_extractor", "", err)
		logger.Error("failed to dial face extractor", zap.Error(wrapped), zap.String("addr", addr))
		return nil, nil, wrapped
	}
	return NewExtractor(conn, logger), conn, nil
}

// NewExtractor wraps an existing connection.
func NewExtractor(conn grpc.ClientConnInterface, logger *zap.Logger) imageprocessor.Detector {
	return &grpcExtractor{conn: conn, logger: logger.Named("grpc_extractor")}
}

type grpcExtractor struct {
	conn   grpc.ClientConnInterface
	logger *zap.Logger
}

func (g *grpcExtractor) Detect(ctx context.Context, img image.Image) ([]imageprocessor.DetectedFace, error) {
	payload, err := imageprocessor.EncodeJPEG(img)
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	resp := &structpb.Struct{}
	if err := g.conn.Invoke(ctx, DetectMethod, wrapperspb.Bytes(payload), resp); err != nil {
		wrapped := logging.NewOperationError("grpcclient.detect", "", err)
		g.logger.Error("face extractor call failed", zap.Error(wrapped))
		return nil, wrapped
	}
	return decodeFaces(resp)
}

func decodeFaces(resp *structpb.Struct) ([]imageprocessor.DetectedFace, error) {
	field, ok := resp.GetFields()["faces"]
	if !ok {
		return nil, errors.New("extractor response has no faces field")
	}
	list := field.GetListValue()
	if list == nil {
		return nil, errors.New("extractor faces field is not a list")
	}

	faces := make([]imageprocessor.DetectedFace, 0, len(list.GetValues()))
	for i, value := range list.GetValues() {
		entry := value.GetStructValue()
		if entry == nil {
			return nil, fmt.Errorf("face %d is not an object", i)
		}
		box, err := numbers(entry, "bbox")
		if err != nil {
			return nil, fmt.Errorf("face %d: %w", i, err)
		}
		if len(box) != 4 {
			return nil, fmt.Errorf("face %d: bbox has %d values", i, len(box))
		}
		embedding, err := numbers(entry, "embedding")
		if err != nil {
			return nil, fmt.Errorf("face %d: %w", i, err)
		}

		face := imageprocessor.DetectedFace{
			Box:       image.Rect(int(box[0]), int(box[1]), int(box[2]), int(box[3])),
			Embedding: make([]float32, len(embedding)),
		}
		for j, v := range embedding {
			face.Embedding[j] = float32(v)
		}
		faces = append(faces, face)
	}
	return faces, nil
}

// numbers reads a numeric list; a missing or null key yields an empty slice.
func numbers(entry *structpb.Struct, key string) ([]float64, error) {
	value, ok := entry.GetFields()[key]
	if !ok {
		return nil, nil
	}
	if _, isNull := value.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, nil
	}
	list := value.GetListValue()
	if list == nil {
		return nil, fmt.Errorf("%s is not a list", key)
	}
	out := make([]float64, len(list.GetValues()))
	for i, v := range list.GetValues() {
		n, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return nil, fmt.Errorf("%s[%d] is not a number", key, i)
		}
		out[i] = n.NumberValue
	}
	return out, nil
}

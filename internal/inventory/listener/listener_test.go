package listener

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fekuna/ronary-inventory-service/internal/apperror"
	"github.com/fekuna/ronary-inventory-service/internal/inventory"
	"github.com/fekuna/ronary-inventory-service/internal/inventory/dto"
	"github.com/fekuna/ronary-inventory-service/internal/model"
	"github.com/fekuna/ronary-inventory-service/pkg/logger"
)

type fakeReader struct {
	msgs chan kafka.Message
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-f.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

type recordingUseCase struct {
	inventory.UseCase
	mu   sync.Mutex
	outs []dto.MovementInput
	done chan struct{}
}

func (r *recordingUseCase) ApplyOut(_ context.Context, in *dto.MovementInput) (*model.Stock, error) {
	r.mu.Lock()
	r.outs = append(r.outs, *in)
	n := len(r.outs)
	r.mu.Unlock()
	if n == 3 {
		close(r.done)
	}
	if in.SKU == "GONE" {
		return nil, apperror.NotFound("SKU", in.SKU)
	}
	return &model.Stock{SKU: in.SKU}, nil
}

func TestSalesListenerAppliesOrderItems(t *testing.T) {
	reader := &fakeReader{msgs: make(chan kafka.Message, 3)}
	uc := &recordingUseCase{done: make(chan struct{})}
	l := NewSalesListener(reader, uc, logger.NewNop())

	reader.msgs <- kafka.Message{Value: []byte(`not json`)}
	reader.msgs <- kafka.Message{Value: []byte(`{"event_type":"OrderCancelled","payload":{"items":[{"sku":"A-1","quantity":1}]}}`)}
	reader.msgs <- kafka.Message{Value: []byte(`{"event_type":"OrderSold","payload":{"order_id":"ord-7","channel":"tokopedia","items":[
		{"sku":"A-1","quantity":2},{"sku":"GONE","quantity":1},{"sku":"B-2","quantity":5}]}}`)}

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		l.Start(ctx)
		close(stopped)
	}()

	select {
	case <-uc.done:
	case <-time.After(2 * time.Second):
		t.Fatal("order items were not applied")
	}
	cancel()
	<-stopped

	require.Len(t, uc.outs, 3, "a failing item does not stop the rest")
	assert.Equal(t, dto.MovementInput{SKU: "A-1", Location: "tokopedia", Qty: 2, Reason: ReasonSold, Notes: "order ord-7"}, uc.outs[0])
	assert.Equal(t, "B-2", uc.outs[2].SKU)
}

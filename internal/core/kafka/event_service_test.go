package kafka

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/Xushengqwer/go-common/config"
	"github.com/Xushengqwer/go-common/core"
	"github.com/Xushengqwer/product_search/internal/models"
)

// fakeProductRepository 记录对仓库的调用，供断言使用。
type fakeProductRepository struct {
	indexedDocs []models.EsProductDocument
	deletedIDs  []uint64
	indexErr    error
	deleteErr   error
}

func (f *fakeProductRepository) IndexProduct(_ context.Context, doc models.EsProductDocument) error {
	if f.indexErr != nil {
		return f.indexErr
	}
	f.indexedDocs = append(f.indexedDocs, doc)
	return nil
}

func (f *fakeProductRepository) DeleteProduct(_ context.Context, productID uint64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedIDs = append(f.deletedIDs, productID)
	return nil
}

func (f *fakeProductRepository) GetProductByID(_ context.Context, _ uint64) (*models.EsProductDocument, error) {
	return nil, errors.New("未实现")
}

func (f *fakeProductRepository) SearchProducts(_ context.Context, _ models.ProductSearchRequest) (*models.SearchResult, error) {
	return nil, errors.New("未实现")
}

func newTestLogger(t *testing.T) *core.ZapLogger {
	t.Helper()
	logger, err := core.NewZapLogger(config.ZapConfig{})
	if err != nil {
		t.Fatalf("创建测试 logger 失败: %v", err)
	}
	return logger
}

func validUpsertEvent() models.KafkaProductUpsertEvent {
	return models.KafkaProductUpsertEvent{
		EventID:     "evt-1",
		ID:          42,
		Name:        "Ruby on Rails Tote",
		Description: "A sturdy canvas tote",
		SKU:         "ROR-TOTE",
		Price:       15.99,
		AvailableOn: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		TaxonIDs:    []uint64{2, 5},
		Properties: map[string][]string{
			"material": {"canvas"},
			"color":    {"red", "blue"},
		},
	}
}

func TestHandleProductUpsertEvent_BuildsDocument(t *testing.T) {
	repo := &fakeProductRepository{}
	svc := NewEventService(repo, newTestLogger(t))

	if err := svc.HandleProductUpsertEvent(context.Background(), validUpsertEvent()); err != nil {
		t.Fatalf("HandleProductUpsertEvent() 返回错误: %v", err)
	}
	if len(repo.indexedDocs) != 1 {
		t.Fatalf("索引调用次数 = %d, 期望 1", len(repo.indexedDocs))
	}

	doc := repo.indexedDocs[0]
	if doc.ID != 42 {
		t.Errorf("ID = %d, 期望 42", doc.ID)
	}
	if doc.UntouchedName != doc.Name {
		t.Errorf("UntouchedName = %q, 期望与 Name %q 一致", doc.UntouchedName, doc.Name)
	}
	// 属性 token 按属性名、属性值的字典序编码。
	wantTokens := []string{"color||blue", "color||red", "material||canvas"}
	if !reflect.DeepEqual(doc.Properties, wantTokens) {
		t.Errorf("Properties = %v, 期望 %v", doc.Properties, wantTokens)
	}
}

func TestHandleProductUpsertEvent_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.KafkaProductUpsertEvent)
		wantErr error
	}{
		{"ID 为零", func(e *models.KafkaProductUpsertEvent) { e.ID = 0 }, ErrInvalidProductID},
		{"名称为空", func(e *models.KafkaProductUpsertEvent) { e.Name = "" }, ErrEmptyName},
		{"价格为负", func(e *models.KafkaProductUpsertEvent) { e.Price = -1 }, ErrNegativePrice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeProductRepository{}
			svc := NewEventService(repo, newTestLogger(t))

			event := validUpsertEvent()
			tt.mutate(&event)

			err := svc.HandleProductUpsertEvent(context.Background(), event)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("错误 = %v, 期望包装 %v", err, tt.wantErr)
			}
			if !isPermanentError(err) {
				t.Error("校验错误应被判定为永久性错误")
			}
			if len(repo.indexedDocs) != 0 {
				t.Error("校验失败的事件不应触发索引调用")
			}
		})
	}
}

func TestHandleProductDeleteEvent(t *testing.T) {
	repo := &fakeProductRepository{}
	svc := NewEventService(repo, newTestLogger(t))

	event := models.KafkaProductDeleteEvent{EventID: "evt-2", Operation: "delete", ProductID: 7}
	if err := svc.HandleProductDeleteEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleProductDeleteEvent() 返回错误: %v", err)
	}
	if !reflect.DeepEqual(repo.deletedIDs, []uint64{7}) {
		t.Errorf("删除的 ID = %v, 期望 [7]", repo.deletedIDs)
	}

	event.ProductID = 0
	if err := svc.HandleProductDeleteEvent(context.Background(), event); !errors.Is(err, ErrInvalidProductID) {
		t.Fatalf("错误 = %v, 期望包装 ErrInvalidProductID", err)
	}
}

func TestHandleProductUpsertEvent_RepoErrorIsRetryable(t *testing.T) {
	repo := &fakeProductRepository{indexErr: errors.New("es 暂时不可用")}
	svc := NewEventService(repo, newTestLogger(t))

	err := svc.HandleProductUpsertEvent(context.Background(), validUpsertEvent())
	if err == nil {
		t.Fatal("仓库失败时应返回错误")
	}
	if isPermanentError(err) {
		t.Error("基础设施错误不应被判定为永久性错误")
	}
}

func TestEncodePropertyTokens_Empty(t *testing.T) {
	if got := encodePropertyTokens(nil); got != nil {
		t.Errorf("空属性映射应产出 nil, 实际为 %v", got)
	}
	if got := encodePropertyTokens(map[string][]string{}); got != nil {
		t.Errorf("空属性映射应产出 nil, 实际为 %v", got)
	}
}

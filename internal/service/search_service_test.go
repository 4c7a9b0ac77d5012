package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Xushengqwer/go-common/config"
	"github.com/Xushengqwer/go-common/core"
	"github.com/Xushengqwer/product_search/internal/models"
	"github.com/Xushengqwer/product_search/internal/repositories"
)

type stubProductRepo struct {
	searchResult *models.SearchResult
	getDoc       *models.EsProductDocument
	getErr       error
}

func (s *stubProductRepo) IndexProduct(context.Context, models.EsProductDocument) error { return nil }
func (s *stubProductRepo) DeleteProduct(context.Context, uint64) error                  { return nil }
func (s *stubProductRepo) GetProductByID(context.Context, uint64) (*models.EsProductDocument, error) {
	return s.getDoc, s.getErr
}
func (s *stubProductRepo) SearchProducts(context.Context, models.ProductSearchRequest) (*models.SearchResult, error) {
	return s.searchResult, nil
}

type stubHotTermRepo struct {
	incremented []string
	incrementErr error
}

func (s *stubHotTermRepo) IncrementSearchTermCount(_ context.Context, term string) error {
	if s.incrementErr != nil {
		return s.incrementErr
	}
	s.incremented = append(s.incremented, term)
	return nil
}
func (s *stubHotTermRepo) GetHotSearchTerms(context.Context, int) ([]models.HotSearchTerm, error) {
	return nil, nil
}

func newTestService(t *testing.T, productRepo repositories.ProductRepository, hotRepo repositories.HotSearchTermRepository) *SearchService {
	t.Helper()
	logger, err := core.NewZapLogger(config.ZapConfig{})
	if err != nil {
		t.Fatalf("创建测试 logger 失败: %v", err)
	}
	return NewSearchService(productRepo, hotRepo, logger)
}

func TestLogSearchQuery_Normalization(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string // nil 表示不应记录
	}{
		{"普通查询", "tote", []string{"tote"}},
		{"大小写折叠", "Ruby Tote", []string{"ruby tote"}},
		{"去除首尾空格", "  shirt  ", []string{"shirt"}},
		{"空查询跳过", "", nil},
		{"纯空白跳过", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hotRepo := &stubHotTermRepo{}
			svc := newTestService(t, &stubProductRepo{}, hotRepo)

			if err := svc.LogSearchQuery(context.Background(), tt.query); err != nil {
				t.Fatalf("LogSearchQuery() 返回错误: %v", err)
			}
			if len(hotRepo.incremented) != len(tt.want) {
				t.Fatalf("记录的词 = %v, 期望 %v", hotRepo.incremented, tt.want)
			}
			for i := range tt.want {
				if hotRepo.incremented[i] != tt.want[i] {
					t.Errorf("记录的词[%d] = %q, 期望 %q", i, hotRepo.incremented[i], tt.want[i])
				}
			}
		})
	}
}

func TestLogSearchQuery_RepoErrorIsWrapped(t *testing.T) {
	hotRepo := &stubHotTermRepo{incrementErr: errors.New("es 不可用")}
	svc := newTestService(t, &stubProductRepo{}, hotRepo)

	if err := svc.LogSearchQuery(context.Background(), "tote"); err == nil {
		t.Fatal("仓库失败时应返回错误")
	}
}

func TestGetProduct_NotFoundPassthrough(t *testing.T) {
	productRepo := &stubProductRepo{getErr: repositories.ErrProductNotFound}
	svc := newTestService(t, productRepo, &stubHotTermRepo{})

	_, err := svc.GetProduct(context.Background(), 99)
	if !errors.Is(err, repositories.ErrProductNotFound) {
		t.Fatalf("错误 = %v, 期望透传 ErrProductNotFound", err)
	}
}

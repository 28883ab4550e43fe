package gallery

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/anoixa/image-gallery/cache"
	"github.com/anoixa/image-gallery/database/models"
	"github.com/anoixa/image-gallery/internal/apperr"
	"github.com/anoixa/image-gallery/internal/compress"
	"github.com/anoixa/image-gallery/internal/remote"
	"github.com/anoixa/image-gallery/internal/worker"
	"github.com/anoixa/image-gallery/utils/generator"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultPageSize 每页图片数
	DefaultPageSize = 20

	defaultCategoryTTL = 10 * time.Minute

	// 搜索建议：至少 2 个字符，标题与分类各取 5 条，合计最多 8 条
	minSuggestQuery   = 2
	suggestPerSource  = 5
	maxSearchSuggests = 8
)

// Config 图库参数
type Config struct {
	PageSize    int
	Upload      compress.Options
	CategoryTTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.CategoryTTL <= 0 {
		c.CategoryTTL = defaultCategoryTTL
	}
	return c
}

// Service 所有会话共享的图库依赖，Manager 通过它访问远端
type Service struct {
	client     *remote.Client
	cache      cache.Provider
	pool       *worker.Pool
	compressor *compress.Compressor
	paths      *generator.PathGenerator
	cfg        Config

	categoryGroup singleflight.Group
}

// NewService 创建图库服务，cache 与 pool 可为 nil
func NewService(
	client *remote.Client,
	cacheProvider cache.Provider,
	pool *worker.Pool,
	compressor *compress.Compressor,
	paths *generator.PathGenerator,
	cfg Config,
) *Service {
	if compressor == nil {
		compressor = compress.Default()
	}
	if paths == nil {
		paths = generator.NewPathGenerator()
	}
	return &Service{
		client:     client,
		cache:      cacheProvider,
		pool:       pool,
		compressor: compressor,
		paths:      paths,
		cfg:        cfg.withDefaults(),
	}
}

// PageSize 每页数量
func (s *Service) PageSize() int {
	return s.cfg.PageSize
}

// Categories 全部分类，按名称排序，结果带缓存
func (s *Service) Categories(ctx context.Context) ([]models.Category, error) {
	key := cache.Categories.Build("all")

	if s.cache != nil {
		var cached []models.Category
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			return cached, nil
		}
		if !cache.IsCacheMiss(err) {
			log.Printf("[Gallery] Category cache read failed: %v", err)
		}
	}

	val, err, _ := s.categoryGroup.Do(key, func() (interface{}, error) {
		rows, err := remote.Select[models.Category](ctx, s.client, remote.Query{
			Sort: []remote.Sort{{Column: "name"}},
		})
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if cacheErr := s.cache.Set(ctx, key, rows, s.cfg.CategoryTTL); cacheErr != nil {
				log.Printf("[Gallery] Failed to cache categories: %v", cacheErr)
			}
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return val.([]models.Category), nil
}

// InvalidateCategories 分类变更后清除缓存
func (s *Service) InvalidateCategories(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.Categories.Build("all")); err != nil {
		log.Printf("[Gallery] Failed to invalidate category cache: %v", err)
	}
}

// SuggestCategories 按模糊匹配程度返回分类，query 为空时返回全部
func (s *Service) SuggestCategories(ctx context.Context, query string, limit int) ([]models.Category, error) {
	categories, err := s.Categories(ctx)
	if err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return truncate(categories, limit), nil
	}

	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = c.Name
	}
	ranks := fuzzy.RankFindNormalizedFold(query, names)
	sort.Stable(ranks)

	out := make([]models.Category, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, categories[r.OriginalIndex])
	}
	return truncate(out, limit), nil
}

// SearchSuggestions 搜索框补全，标题子串匹配在前，分类模糊匹配在后，忽略大小写去重
func (s *Service) SearchSuggestions(ctx context.Context, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minSuggestQuery {
		return []string{}, nil
	}

	stats, err := remote.Select[models.ImageStat](ctx, s.client, remote.Query{
		Filters: []remote.Filter{remote.Contains("title", query)},
		Sort:    []remote.Sort{{Column: "created_at", Desc: true}, {Column: "id", Desc: true}},
		Range:   &remote.Range{From: 0, To: 2*suggestPerSource - 1},
	})
	if err != nil {
		return nil, err
	}
	categories, err := s.SuggestCategories(ctx, query, suggestPerSource)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	out := make([]string, 0, maxSearchSuggests)
	add := func(v string) {
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok || v == "" {
			return
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	for _, st := range stats {
		if len(out) == suggestPerSource {
			break
		}
		add(st.Title)
	}
	for _, c := range categories {
		if len(out) == maxSearchSuggests {
			break
		}
		add(c.Name)
	}
	return out, nil
}

// ResolveCategory 把用户输入的名称解析为分类，精确匹配优先
func (s *Service) ResolveCategory(ctx context.Context, name string) (*models.Category, error) {
	const op = "resolve category"

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation(op, "category name is required")
	}

	categories, err := s.Categories(ctx)
	if err != nil {
		return nil, err
	}
	for i := range categories {
		if strings.EqualFold(categories[i].Name, name) {
			return &categories[i], nil
		}
	}

	matches, err := s.SuggestCategories(ctx, name, 1)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, apperr.Query(op, apperr.ErrNotFound)
	}
	return &matches[0], nil
}

func truncate(categories []models.Category, limit int) []models.Category {
	if limit > 0 && len(categories) > limit {
		return categories[:limit]
	}
	return categories
}

// removeObjectLater 在协程池中删除存储对象，池不可用时同步执行
func (s *Service) removeObjectLater(bucket, path string) {
	task := &worker.RemoveObjectTask{Remover: s.client, Bucket: bucket, Path: path}
	if s.pool != nil && s.pool.SubmitTask(task) {
		return
	}
	task.Execute()
}

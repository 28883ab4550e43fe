package remote

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/anoixa/image-gallery/internal/apperr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Op 过滤操作符
type Op string

const (
	OpEq    Op = "eq"
	OpNeq   Op = "neq"
	OpILike Op = "ilike"
	OpGte   Op = "gte"
	OpLte   Op = "lte"
	OpIn    Op = "in"
)

// Filter 单个过滤条件，多个条件之间为 AND
type Filter struct {
	Column string
	Op     Op
	Value  interface{}
}

func Eq(column string, value interface{}) Filter { return Filter{Column: column, Op: OpEq, Value: value} }
func Neq(column string, value interface{}) Filter { return Filter{Column: column, Op: OpNeq, Value: value} }
func Gte(column string, value interface{}) Filter { return Filter{Column: column, Op: OpGte, Value: value} }
func Lte(column string, value interface{}) Filter { return Filter{Column: column, Op: OpLte, Value: value} }

// In value 必须是切片
func In(column string, values interface{}) Filter { return Filter{Column: column, Op: OpIn, Value: values} }

// ILike 大小写不敏感的模式匹配，pattern 中的 % 和 _ 按通配符处理
func ILike(column, pattern string) Filter { return Filter{Column: column, Op: OpILike, Value: pattern} }

// Contains 大小写不敏感的子串匹配，text 中的通配符会被转义
func Contains(column, text string) Filter {
	return ILike(column, "%"+escapeLike(text)+"%")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Sort 排序
type Sort struct {
	Column string
	Desc   bool
}

// Range 闭区间 [From, To]，与分页的 (page-1)*size .. page*size-1 对应
type Range struct {
	From int
	To   int
}

// PageRange 第 page 页（从 1 开始）的区间
func PageRange(page, size int) Range {
	if page < 1 {
		page = 1
	}
	return Range{From: (page - 1) * size, To: page*size - 1}
}

// Query 查询参数
type Query struct {
	Filters []Filter
	Sort    []Sort
	Range   *Range
}

var identifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func validColumn(column string) error {
	if !identifier.MatchString(column) {
		return fmt.Errorf("invalid column name %q", column)
	}
	return nil
}

func applyFilters(db *gorm.DB, filters []Filter) (*gorm.DB, error) {
	for _, f := range filters {
		if err := validColumn(f.Column); err != nil {
			return nil, err
		}
		col := clause.Column{Name: f.Column}

		switch f.Op {
		case OpEq:
			db = db.Where(clause.Eq{Column: col, Value: f.Value})
		case OpNeq:
			db = db.Where(clause.Neq{Column: col, Value: f.Value})
		case OpGte:
			db = db.Where(clause.Gte{Column: col, Value: f.Value})
		case OpLte:
			db = db.Where(clause.Lte{Column: col, Value: f.Value})
		case OpILike:
			db = db.Where(clause.Expr{SQL: `LOWER(?) LIKE LOWER(?) ESCAPE '\'`, Vars: []interface{}{col, f.Value}})
		case OpIn:
			values, err := toSlice(f.Value)
			if err != nil {
				return nil, fmt.Errorf("filter %s: %w", f.Column, err)
			}
			db = db.Where(clause.IN{Column: col, Values: values})
		default:
			return nil, fmt.Errorf("unsupported filter operator %q", f.Op)
		}
	}
	return db, nil
}

func toSlice(v interface{}) ([]interface{}, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("in operator expects a slice, got %T", v)
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

func applyQuery(db *gorm.DB, q Query) (*gorm.DB, error) {
	db, err := applyFilters(db, q.Filters)
	if err != nil {
		return nil, err
	}

	for _, s := range q.Sort {
		if err := validColumn(s.Column); err != nil {
			return nil, err
		}
		db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: s.Column}, Desc: s.Desc})
	}

	if q.Range != nil {
		if q.Range.From < 0 || q.Range.To < q.Range.From {
			return nil, fmt.Errorf("invalid range [%d, %d]", q.Range.From, q.Range.To)
		}
		db = db.Offset(q.Range.From).Limit(q.Range.To - q.Range.From + 1)
	}
	return db, nil
}

func opName[T any](verb string) string {
	var zero T
	return verb + " " + reflect.TypeOf(zero).Name()
}

// Select 按条件读取 T 对应的表或视图
func Select[T any](ctx context.Context, c *Client, q Query) ([]T, error) {
	op := opName[T]("select")

	db, err := applyQuery(c.db.WithContext(ctx).Model(new(T)), q)
	if err != nil {
		return nil, apperr.Query(op, err)
	}

	var rows []T
	if err := db.Find(&rows).Error; err != nil {
		return nil, apperr.Query(op, err)
	}
	return rows, nil
}

// First 返回第一条匹配记录，不存在时为包装了 ErrNotFound 的 QueryError
func First[T any](ctx context.Context, c *Client, filters ...Filter) (*T, error) {
	op := opName[T]("first")

	db, err := applyFilters(c.db.WithContext(ctx).Model(new(T)), filters)
	if err != nil {
		return nil, apperr.Query(op, err)
	}

	var row T
	if err := db.Limit(1).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Query(op, apperr.ErrNotFound)
		}
		return nil, apperr.Query(op, err)
	}
	return &row, nil
}

// Count 统计匹配记录数
func Count[T any](ctx context.Context, c *Client, filters ...Filter) (int64, error) {
	op := opName[T]("count")

	db, err := applyFilters(c.db.WithContext(ctx).Model(new(T)), filters)
	if err != nil {
		return 0, apperr.Query(op, err)
	}

	var n int64
	if err := db.Count(&n).Error; err != nil {
		return 0, apperr.Query(op, err)
	}
	return n, nil
}

// Pluck 读取单列
func Pluck[T any, V any](ctx context.Context, c *Client, column string, filters ...Filter) ([]V, error) {
	op := opName[T]("pluck")

	if err := validColumn(column); err != nil {
		return nil, apperr.Query(op, err)
	}
	db, err := applyFilters(c.db.WithContext(ctx).Model(new(T)), filters)
	if err != nil {
		return nil, apperr.Query(op, err)
	}

	var values []V
	if err := db.Pluck(column, &values).Error; err != nil {
		return nil, apperr.Query(op, err)
	}
	return values, nil
}

// Insert 插入一行，主键等由数据库回填到 row
func Insert[T any](ctx context.Context, c *Client, row *T) error {
	if err := c.db.WithContext(ctx).Create(row).Error; err != nil {
		return apperr.Write(opName[T]("insert"), err)
	}
	return nil
}

// InsertMany 批量插入
func InsertMany[T any](ctx context.Context, c *Client, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	if err := c.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return apperr.Write(opName[T]("insert"), err)
	}
	return nil
}

// Upsert 按 conflictKeys 插入或更新 updateColumns
func Upsert[T any](ctx context.Context, c *Client, row *T, conflictKeys, updateColumns []string) error {
	op := opName[T]("upsert")

	if len(conflictKeys) == 0 || len(updateColumns) == 0 {
		return apperr.Write(op, errors.New("conflict keys and update columns are required"))
	}
	columns := make([]clause.Column, 0, len(conflictKeys))
	for _, key := range conflictKeys {
		if err := validColumn(key); err != nil {
			return apperr.Write(op, err)
		}
		columns = append(columns, clause.Column{Name: key})
	}
	for _, col := range updateColumns {
		if err := validColumn(col); err != nil {
			return apperr.Write(op, err)
		}
	}

	err := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: columns, DoUpdates: clause.AssignmentColumns(updateColumns)}).
		Create(row).Error
	if err != nil {
		return apperr.Write(op, err)
	}
	return nil
}

// Update 更新匹配行，必须至少有一个条件
func Update[T any](ctx context.Context, c *Client, values map[string]interface{}, match ...Filter) (int64, error) {
	op := opName[T]("update")

	if len(match) == 0 {
		return 0, apperr.Write(op, errors.New("update without filter"))
	}
	for col := range values {
		if err := validColumn(col); err != nil {
			return 0, apperr.Write(op, err)
		}
	}
	db, err := applyFilters(c.db.WithContext(ctx).Model(new(T)), match)
	if err != nil {
		return 0, apperr.Write(op, err)
	}

	result := db.Updates(values)
	if result.Error != nil {
		return 0, apperr.Write(op, result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, apperr.Write(op, apperr.ErrNotFound)
	}
	return result.RowsAffected, nil
}

// Delete 删除匹配行，没有删除任何行时返回包装了 ErrNotFound 的 WriteError
func Delete[T any](ctx context.Context, c *Client, match ...Filter) (int64, error) {
	op := opName[T]("delete")

	if len(match) == 0 {
		return 0, apperr.Write(op, errors.New("delete without filter"))
	}
	db, err := applyFilters(c.db.WithContext(ctx), match)
	if err != nil {
		return 0, apperr.Write(op, err)
	}

	result := db.Delete(new(T))
	if result.Error != nil {
		return 0, apperr.Write(op, result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, apperr.Write(op, apperr.ErrNotFound)
	}
	return result.RowsAffected, nil
}

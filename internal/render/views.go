package render

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/anoixa/image-gallery/database/models"
	"github.com/anoixa/image-gallery/internal/gallery"
	"github.com/anoixa/image-gallery/utils/format"
)

// Viewer 构建视图时需要的上下文
type Viewer struct {
	User      *models.User
	ImageURL  func(storagePath string) string
	Favorites map[string]bool
	Now       time.Time
}

func (v Viewer) now() time.Time {
	if v.Now.IsZero() {
		return time.Now()
	}
	return v.Now
}

func (v Viewer) userID() string {
	if v.User == nil {
		return ""
	}
	return v.User.ID
}

// Star 一颗星的展示状态
type Star struct {
	Value  int
	Filled bool
	Half   bool
}

// CardView 图片卡片
type CardView struct {
	ID            string
	Title         string
	OwnerID       string
	OwnerName     string
	ImageURL      string
	Width         int
	Height        int
	AvgRating     string
	RatingCount   int64
	CommentCount  int64
	FavoriteCount int64
	Stars         []Star
	Favorited     bool
	CanRate       bool
	CanDelete     bool
	CreatedAt     time.Time
	TimeAgo       string
}

// NewCardView 把 image_stats 的一行转换为卡片
func NewCardView(stat models.ImageStat, v Viewer) CardView {
	url := stat.StoragePath
	if v.ImageURL != nil {
		url = v.ImageURL(stat.StoragePath)
	}
	ownerName := stat.OwnerName
	if ownerName == "" {
		ownerName = shortID(stat.UserID)
	}

	return CardView{
		ID:            stat.ID,
		Title:         stat.DisplayTitle(),
		OwnerID:       stat.UserID,
		OwnerName:     ownerName,
		ImageURL:      url,
		Width:         stat.Width,
		Height:        stat.Height,
		AvgRating:     FormatRating(stat.AvgRating),
		RatingCount:   stat.RatingCount,
		CommentCount:  stat.CommentCount,
		FavoriteCount: stat.FavoriteCount,
		Stars:         Stars(stat.AvgRating),
		Favorited:     v.Favorites[stat.ID],
		CanRate:       v.User != nil,
		CanDelete:     v.User != nil && v.User.ID == stat.UserID,
		CreatedAt:     stat.CreatedAt,
		TimeAgo:       TimeAgo(stat.CreatedAt, v.now()),
	}
}

// NewCardViews 批量转换
func NewCardViews(stats []models.ImageStat, v Viewer) []CardView {
	cards := make([]CardView, len(stats))
	for i, s := range stats {
		cards[i] = NewCardView(s, v)
	}
	return cards
}

// FormatRating 平均分保留一位小数
func FormatRating(avg float64) string {
	return strconv.FormatFloat(math.Round(avg*10)/10, 'f', 1, 64)
}

// Stars 五颗星，按 0.5 取整
func Stars(avg float64) []Star {
	rounded := math.Round(avg*2) / 2
	stars := make([]Star, 5)
	for i := range stars {
		value := i + 1
		stars[i] = Star{
			Value:  value,
			Filled: float64(value) <= rounded,
			Half:   float64(value)-0.5 == rounded,
		}
	}
	return stars
}

// TimeAgo 相对时间
func TimeAgo(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute")
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour")
	case d < 30*24*time.Hour:
		return plural(int(d/(24*time.Hour)), "day")
	case d < 365*24*time.Hour:
		return plural(int(d/(30*24*time.Hour)), "month")
	default:
		return plural(int(d/(365*24*time.Hour)), "year")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// SortOption 排序下拉项
type SortOption struct {
	Value    string
	Label    string
	Selected bool
}

// CategoryOption 分类下拉项
type CategoryOption struct {
	ID       uint
	Name     string
	Selected bool
}

// FilterView 工具栏
type FilterView struct {
	Search        string
	Sorts         []SortOption
	Categories    []CategoryOption
	MinRating     float64
	MaxRating     float64
	FavoritesOnly bool
	Mine          bool
	CanFilterMine bool
}

// NewFilterView 根据当前筛选条件构建工具栏
func NewFilterView(f gallery.Filters, categories []models.Category, viewer *models.User) FilterView {
	view := FilterView{
		Search:        f.Search,
		MinRating:     f.MinRating,
		MaxRating:     f.MaxRating,
		FavoritesOnly: f.FavoritesOnly,
		Mine:          viewer != nil && f.OwnerID == viewer.ID,
		CanFilterMine: viewer != nil,
	}
	for _, s := range gallery.Sorts() {
		view.Sorts = append(view.Sorts, SortOption{Value: string(s), Label: s.Label(), Selected: s == f.Sort})
	}
	for _, c := range categories {
		view.Categories = append(view.Categories, CategoryOption{ID: c.ID, Name: c.Name, Selected: c.ID == f.Category})
	}
	return view
}

// GridView 卡片网格
type GridView struct {
	Cards    []CardView
	HasMore  bool
	NextPage int
	Empty    bool
	Message  string
}

// NewGridView 根据图库快照构建网格
func NewGridView(snap gallery.Snapshot, v Viewer) GridView {
	grid := GridView{
		Cards:    NewCardViews(snap.Images, v),
		HasMore:  snap.HasMore,
		NextPage: snap.CurrentPage + 1,
		Empty:    len(snap.Images) == 0,
	}
	if grid.Empty {
		grid.Message = emptyMessage(snap.Filters)
	}
	return grid
}

// Tail 只保留下标 from 之后的卡片，用于无限滚动的追加片段
func Tail(grid GridView, from int) GridView {
	if from < 0 {
		from = 0
	}
	if from > len(grid.Cards) {
		from = len(grid.Cards)
	}
	grid.Cards = grid.Cards[from:]
	return grid
}

func emptyMessage(f gallery.Filters) string {
	switch {
	case f.Search != "":
		return fmt.Sprintf("No images match %q.", f.Search)
	case f.FavoritesOnly:
		return "You have not favorited any images yet."
	case f.OwnerID != "":
		return "No uploads yet."
	case f.Category != 0 || f.MinRating > 0 || f.MaxRating > 0 || f.From != nil || f.To != nil:
		return "No images match these filters."
	default:
		return "The gallery is empty. Be the first to upload!"
	}
}

// UserView 页眉中的用户
type UserView struct {
	ID          string
	Email       string
	DisplayName string
	AvatarURL   string
	Initial     string
	IsAdmin     bool
}

// NewUserView 匿名时返回 nil
func NewUserView(u *models.User) *UserView {
	if u == nil {
		return nil
	}
	name := u.DisplayName()
	initial := "?"
	for _, r := range name {
		initial = string(r)
		break
	}
	return &UserView{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: name,
		AvatarURL:   u.AvatarURL(),
		Initial:     initial,
		IsAdmin:     u.IsAdmin(),
	}
}

// ProfileView 资料弹窗
type ProfileView struct {
	User        *UserView
	DisplayName string
	Bio         string
	Website     string
	Location    string
	Error       string
}

// NewProfileView 资料表单的当前值
func NewProfileView(u *models.User, errMsg string) ProfileView {
	view := ProfileView{User: NewUserView(u), Error: errMsg}
	if u != nil {
		view.DisplayName = u.DisplayName()
		if u.Profile != nil {
			view.Bio = u.Profile.Bio
			view.Website = u.Profile.Website
			view.Location = u.Profile.Location
		}
	}
	return view
}

// AuthModalView 登录/注册弹窗
type AuthModalView struct {
	Tab    string
	Email  string
	Error  string
	Notice string
}

// UploadView 上传表单
type UploadView struct {
	Categories []CategoryOption
	MaxSizeMB  int
	Error      string
}

// NewUploadView 上传表单
func NewUploadView(categories []models.Category, maxSizeMB int, errMsg string) UploadView {
	view := UploadView{MaxSizeMB: maxSizeMB, Error: errMsg}
	for _, c := range categories {
		view.Categories = append(view.Categories, CategoryOption{ID: c.ID, Name: c.Name})
	}
	return view
}

// CommentView 评论
type CommentView struct {
	ID           uint
	Author       string
	AuthorAvatar string
	Content      string
	TimeAgo      string
	CanDelete    bool
}

// DistributionBar 评分分布的一行
type DistributionBar struct {
	Stars   int
	Count   int64
	Percent int
}

// DetailView 图片详情
type DetailView struct {
	Card         CardView
	Comments     []CommentView
	Categories   []string
	Distribution []DistributionBar
	ViewerRating int
	CanComment   bool
	FileSize     string
	Dimensions   string
}

// NewDetailView 详情弹窗
func NewDetailView(d *gallery.Details, v Viewer) DetailView {
	if v.Favorites == nil {
		v.Favorites = map[string]bool{}
	}
	v.Favorites[d.Image.ID] = d.IsFavorite

	view := DetailView{
		Card:         NewCardView(d.Image, v),
		ViewerRating: d.ViewerRating,
		CanComment:   v.User != nil,
		FileSize:     format.FileSize(d.Image.Size),
		Dimensions:   format.Dimensions(d.Image.Width, d.Image.Height),
	}

	isAdmin := v.User != nil && v.User.IsAdmin()
	for _, c := range d.Comments {
		view.Comments = append(view.Comments, CommentView{
			ID:           c.ID,
			Author:       c.AuthorName,
			AuthorAvatar: c.AuthorAvatar,
			Content:      c.Content,
			TimeAgo:      TimeAgo(c.CreatedAt, v.now()),
			CanDelete:    v.User != nil && (c.UserID == v.userID() || isAdmin),
		})
	}
	for _, c := range d.Categories {
		view.Categories = append(view.Categories, c.Name)
	}

	var total int64
	for _, n := range d.Distribution {
		total += n
	}
	for stars := 5; stars >= 1; stars-- {
		count := d.Distribution[stars-1]
		percent := 0
		if total > 0 {
			percent = int(math.Round(float64(count) * 100 / float64(total)))
		}
		view.Distribution = append(view.Distribution, DistributionBar{Stars: stars, Count: count, Percent: percent})
	}
	return view
}

// ToastView 提示消息
type ToastView struct {
	Kind    string
	Message string
}

// Success 成功提示
func Success(msg string) ToastView { return ToastView{Kind: "success", Message: msg} }

// Failure 错误提示
func Failure(msg string) ToastView { return ToastView{Kind: "error", Message: msg} }

// PageView 整页
type PageView struct {
	Title   string
	User    *UserView
	Filters FilterView
	Grid    GridView
	Toast   *ToastView
	Version string
}

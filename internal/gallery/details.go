package gallery

import (
	"context"
	"errors"

	"github.com/anoixa/image-gallery/database/models"
	"github.com/anoixa/image-gallery/internal/apperr"
	"github.com/anoixa/image-gallery/internal/remote"
	"golang.org/x/sync/errgroup"
)

// CommentView 评论及作者
type CommentView struct {
	models.Comment
	AuthorName   string
	AuthorAvatar string
}

// Details 图片详情
type Details struct {
	Image        models.ImageStat
	Comments     []CommentView
	Categories   []models.Category
	Distribution [5]int64 // 下标 0 对应 1 星
	ViewerRating int
	IsFavorite   bool
}

// ImageDetails 并发读取详情所需的全部数据
func (m *Manager) ImageDetails(ctx context.Context, imageID string) (*Details, error) {
	var details Details
	viewer := m.viewer()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		stat, err := remote.First[models.ImageStat](gctx, m.svc.client, remote.Eq("id", imageID))
		if err != nil {
			return err
		}
		details.Image = *stat
		return nil
	})

	g.Go(func() error {
		comments, err := m.Comments(gctx, imageID)
		details.Comments = comments
		return err
	})

	g.Go(func() error {
		categories, err := m.imageCategories(gctx, imageID)
		details.Categories = categories
		return err
	})

	g.Go(func() error {
		values, err := remote.Pluck[models.Rating, int](gctx, m.svc.client, "rating", remote.Eq("image_id", imageID))
		if err != nil {
			return err
		}
		for _, v := range values {
			if v >= 1 && v <= 5 {
				details.Distribution[v-1]++
			}
		}
		return nil
	})

	if viewer != nil {
		g.Go(func() error {
			rating, err := m.userRating(gctx, imageID, viewer.ID)
			details.ViewerRating = rating
			return err
		})
		g.Go(func() error {
			favorite, err := m.isFavorite(gctx, imageID, viewer.ID)
			details.IsFavorite = favorite
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &details, nil
}

func (m *Manager) viewer() *models.User {
	if m.identity == nil {
		return nil
	}
	return m.identity.CurrentUser()
}

// Comments 按时间顺序返回评论，附带作者名称
func (m *Manager) Comments(ctx context.Context, imageID string) ([]CommentView, error) {
	comments, err := remote.Select[models.Comment](ctx, m.svc.client, remote.Query{
		Filters: []remote.Filter{remote.Eq("image_id", imageID)},
		Sort:    []remote.Sort{{Column: "created_at"}, {Column: "id"}},
	})
	if err != nil {
		return nil, err
	}
	if len(comments) == 0 {
		return []CommentView{}, nil
	}

	authorIDs := make([]string, 0, len(comments))
	seen := make(map[string]struct{}, len(comments))
	for _, c := range comments {
		if _, ok := seen[c.UserID]; !ok {
			seen[c.UserID] = struct{}{}
			authorIDs = append(authorIDs, c.UserID)
		}
	}

	users, err := remote.Select[models.User](ctx, m.svc.client, remote.Query{
		Filters: []remote.Filter{remote.In("id", authorIDs)},
	})
	if err != nil {
		return nil, err
	}
	profiles, err := remote.Select[models.Profile](ctx, m.svc.client, remote.Query{
		Filters: []remote.Filter{remote.In("user_id", authorIDs)},
	})
	if err != nil {
		return nil, err
	}

	authors := make(map[string]*models.User, len(users))
	for i := range users {
		authors[users[i].ID] = &users[i]
	}
	for i := range profiles {
		if u, ok := authors[profiles[i].UserID]; ok {
			u.Profile = &profiles[i]
		}
	}

	views := make([]CommentView, len(comments))
	for i, c := range comments {
		views[i] = CommentView{Comment: c, AuthorName: "deleted user"}
		if u, ok := authors[c.UserID]; ok {
			views[i].AuthorName = u.DisplayName()
			views[i].AuthorAvatar = u.AvatarURL()
		}
	}
	return views, nil
}

func (m *Manager) imageCategories(ctx context.Context, imageID string) ([]models.Category, error) {
	ids, err := remote.Pluck[models.ImageCategory, uint](ctx, m.svc.client, "category_id", remote.Eq("image_id", imageID))
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []models.Category{}, nil
	}
	return remote.Select[models.Category](ctx, m.svc.client, remote.Query{
		Filters: []remote.Filter{remote.In("id", ids)},
		Sort:    []remote.Sort{{Column: "name"}},
	})
}

// UserRating 当前用户对图片的评分，未评分为 0
func (m *Manager) UserRating(ctx context.Context, imageID string) (int, error) {
	user, err := m.currentUser("get rating")
	if err != nil {
		return 0, err
	}
	return m.userRating(ctx, imageID, user.ID)
}

func (m *Manager) userRating(ctx context.Context, imageID, userID string) (int, error) {
	row, err := remote.First[models.Rating](ctx, m.svc.client, remote.Eq("image_id", imageID), remote.Eq("user_id", userID))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return row.Rating, nil
}

// IsFavorite 当前用户是否收藏
func (m *Manager) IsFavorite(ctx context.Context, imageID string) (bool, error) {
	user, err := m.currentUser("get favorite")
	if err != nil {
		return false, err
	}
	return m.isFavorite(ctx, imageID, user.ID)
}

func (m *Manager) isFavorite(ctx context.Context, imageID, userID string) (bool, error) {
	n, err := remote.Count[models.Favorite](ctx, m.svc.client, remote.Eq("image_id", imageID), remote.Eq("user_id", userID))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FavoriteSet 在已加载列表中，当前用户收藏了哪些图片
func (m *Manager) FavoriteSet(ctx context.Context) (map[string]bool, error) {
	set := make(map[string]bool)
	viewer := m.viewer()
	if viewer == nil {
		return set, nil
	}

	snapshot := m.Snapshot()
	if len(snapshot.Images) == 0 {
		return set, nil
	}
	ids := make([]string, len(snapshot.Images))
	for i, img := range snapshot.Images {
		ids[i] = img.ID
	}

	favorites, err := remote.Pluck[models.Favorite, string](ctx, m.svc.client, "image_id",
		remote.Eq("user_id", viewer.ID), remote.In("image_id", ids))
	if err != nil {
		return nil, err
	}
	for _, id := range favorites {
		set[id] = true
	}
	return set, nil
}

package gallery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/anoixa/image-gallery/database/models"
	"github.com/anoixa/image-gallery/internal/apperr"
	"github.com/anoixa/image-gallery/internal/compress"
	"github.com/anoixa/image-gallery/internal/remote"
	"github.com/anoixa/image-gallery/storage"
	"github.com/anoixa/image-gallery/utils"
)

const (
	MaxTitleLength   = 100
	MaxCommentLength = 1000
)

// Upload 一次上传请求
type Upload struct {
	File        io.Reader
	Filename    string
	Title       string
	CategoryIDs []uint
}

// UploadImage 压缩、写入存储、插入元数据，最后写分类关联
// 存储写入失败时不会产生元数据；元数据写入失败时删除已上传的对象
func (m *Manager) UploadImage(ctx context.Context, upload Upload) (*models.Image, error) {
	const op = "upload image"

	user, err := m.currentUser(op)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(upload.Title)
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return nil, apperr.Validation(op, fmt.Sprintf("title must be at most %d characters", MaxTitleLength))
	}
	filename := path.Base(strings.ReplaceAll(strings.TrimSpace(upload.Filename), "\\", "/"))
	if filename == "" || filename == "." || filename == "/" {
		return nil, apperr.Validation(op, "a file is required")
	}
	if upload.File == nil {
		return nil, apperr.Validation(op, "a file is required")
	}

	result, err := m.svc.compressor.Compress(upload.File, m.svc.cfg.Upload)
	if err != nil {
		return nil, err
	}

	key := m.svc.paths.ImagePath(user.ID, filename, compress.Extension)
	size := int64(len(result.Data))
	if err := m.svc.client.UploadObject(ctx, storage.BucketImages, key, result.Reader(), size, compress.ContentType); err != nil {
		return nil, err
	}

	image := &models.Image{
		UserID:      user.ID,
		StoragePath: key,
		Title:       title,
		Filename:    filename,
		Width:       result.Width,
		Height:      result.Height,
		Size:        size,
		MimeType:    compress.ContentType,
	}
	if err := remote.Insert(ctx, m.svc.client, image); err != nil {
		if rmErr := m.svc.client.RemoveObject(context.WithoutCancel(ctx), storage.BucketImages, key); rmErr != nil {
			log.Printf("[Gallery] Failed to remove orphaned object %s: %v", key, rmErr)
		}
		return nil, err
	}

	if joins := categoryJoins(image.ID, upload.CategoryIDs); len(joins) > 0 {
		if err := remote.InsertMany(ctx, m.svc.client, joins); err != nil {
			log.Printf("[Gallery] Image %s saved but category assignment failed: %v", image.ID, err)
		}
	}

	utils.LogIfDevf("[Gallery] User %s uploaded %s (%dx%d, %d bytes)", user.ID, key, image.Width, image.Height, size)
	return image, nil
}

func categoryJoins(imageID string, ids []uint) []models.ImageCategory {
	seen := make(map[uint]struct{}, len(ids))
	joins := make([]models.ImageCategory, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		joins = append(joins, models.ImageCategory{ImageID: imageID, CategoryID: id})
	}
	return joins
}

// RateImage 评分 1..5，同一用户对同一图片只保留最后一次
func (m *Manager) RateImage(ctx context.Context, imageID string, rating int) (*models.ImageStat, error) {
	const op = "rate image"

	user, err := m.currentUser(op)
	if err != nil {
		return nil, err
	}
	if rating < 1 || rating > 5 {
		return nil, apperr.Validation(op, "rating must be between 1 and 5")
	}
	if imageID == "" {
		return nil, apperr.Validation(op, "image is required")
	}

	row := &models.Rating{ImageID: imageID, UserID: user.ID, Rating: rating}
	if err := remote.Upsert(ctx, m.svc.client, row, []string{"image_id", "user_id"}, []string{"rating", "updated_at"}); err != nil {
		return nil, err
	}
	return m.refresh(ctx, imageID)
}

// ToggleFavorite 先读后写，返回切换后的收藏状态
// 同一用户快速连续切换时可能竞争，不做处理
func (m *Manager) ToggleFavorite(ctx context.Context, imageID string) (bool, error) {
	const op = "toggle favorite"

	user, err := m.currentUser(op)
	if err != nil {
		return false, err
	}
	if imageID == "" {
		return false, apperr.Validation(op, "image is required")
	}

	match := []remote.Filter{remote.Eq("image_id", imageID), remote.Eq("user_id", user.ID)}
	_, err = remote.First[models.Favorite](ctx, m.svc.client, match...)
	var favorited bool
	switch {
	case err == nil:
		if _, err := remote.Delete[models.Favorite](ctx, m.svc.client, match...); err != nil {
			return false, err
		}
		favorited = false
	case errors.Is(err, apperr.ErrNotFound):
		if err := remote.Insert(ctx, m.svc.client, &models.Favorite{ImageID: imageID, UserID: user.ID}); err != nil {
			return false, err
		}
		favorited = true
	default:
		return false, err
	}

	if _, err := m.refresh(ctx, imageID); err != nil {
		log.Printf("[Gallery] Failed to refresh image %s after favorite toggle: %v", imageID, err)
	}
	return favorited, nil
}

// AddComment 添加评论
func (m *Manager) AddComment(ctx context.Context, imageID, content string) (*models.Comment, error) {
	const op = "add comment"

	user, err := m.currentUser(op)
	if err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Validation(op, "comment cannot be empty")
	}
	if utf8.RuneCountInString(content) > MaxCommentLength {
		return nil, apperr.Validation(op, fmt.Sprintf("comment must be at most %d characters", MaxCommentLength))
	}
	if imageID == "" {
		return nil, apperr.Validation(op, "image is required")
	}

	comment := &models.Comment{ImageID: imageID, UserID: user.ID, Content: content}
	if err := remote.Insert(ctx, m.svc.client, comment); err != nil {
		return nil, err
	}
	if _, err := m.refresh(ctx, imageID); err != nil {
		log.Printf("[Gallery] Failed to refresh image %s after comment: %v", imageID, err)
	}
	return comment, nil
}

// DeleteComment 删除评论，作者或管理员
func (m *Manager) DeleteComment(ctx context.Context, commentID uint) error {
	const op = "delete comment"

	user, err := m.currentUser(op)
	if err != nil {
		return err
	}

	comment, err := remote.First[models.Comment](ctx, m.svc.client, remote.Eq("id", commentID))
	if err != nil {
		return err
	}
	if comment.UserID != user.ID && !user.IsAdmin() {
		return apperr.Auth(op, "you can only delete your own comments", nil)
	}

	if _, err := remote.Delete[models.Comment](ctx, m.svc.client, remote.Eq("id", commentID)); err != nil {
		return err
	}
	if _, err := m.refresh(ctx, comment.ImageID); err != nil {
		log.Printf("[Gallery] Failed to refresh image %s after comment delete: %v", comment.ImageID, err)
	}
	return nil
}

// ownedImage 读取图片并检查所有权
func (m *Manager) ownedImage(ctx context.Context, op, imageID string) (*models.User, *models.Image, error) {
	user, err := m.currentUser(op)
	if err != nil {
		return nil, nil, err
	}
	if imageID == "" {
		return nil, nil, apperr.Validation(op, "image is required")
	}

	image, err := remote.First[models.Image](ctx, m.svc.client, remote.Eq("id", imageID))
	if err != nil {
		return nil, nil, err
	}
	if image.UserID != user.ID {
		return nil, nil, apperr.Auth(op, "only the owner can change this image", nil)
	}
	return user, image, nil
}

// UpdateTitle 修改标题，仅所有者
func (m *Manager) UpdateTitle(ctx context.Context, imageID, title string) (*models.ImageStat, error) {
	const op = "update title"

	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return nil, apperr.Validation(op, fmt.Sprintf("title must be at most %d characters", MaxTitleLength))
	}
	if _, _, err := m.ownedImage(ctx, op, imageID); err != nil {
		return nil, err
	}

	if _, err := remote.Update[models.Image](ctx, m.svc.client, map[string]interface{}{"title": title}, remote.Eq("id", imageID)); err != nil {
		return nil, err
	}
	return m.refresh(ctx, imageID)
}

// DeleteImage 先删元数据，再异步删除存储对象，后者失败只记录日志
func (m *Manager) DeleteImage(ctx context.Context, imageID string) error {
	const op = "delete image"

	user, image, err := m.ownedImage(ctx, op, imageID)
	if err != nil {
		return err
	}

	if _, err := remote.Delete[models.Image](ctx, m.svc.client, remote.Eq("id", imageID)); err != nil {
		return err
	}
	m.forget(imageID)
	m.svc.removeObjectLater(storage.BucketImages, image.StoragePath)

	log.Printf("[Gallery] User %s deleted image %s", user.ID, imageID)
	return nil
}

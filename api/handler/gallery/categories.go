package gallery

import (
	"strconv"

	"github.com/anoixa/image-gallery/api/common"
	"github.com/gin-gonic/gin"
)

type categoryResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// SearchSuggestions 搜索框补全
// @Summary      Suggest search terms
// @Description  Image titles containing the query, then fuzzy-matched category names. Queries shorter than 2 characters return an empty list.
// @Tags         search
// @Produce      json
// @Param        q  query     string  true  "Partial search text"
// @Success      200  {object}  common.Response{data=[]string}
// @Failure      500  {object}  common.Response  "Internal server error"
// @Router       /search/suggest [get]
func (h *Handler) SearchSuggestions(c *gin.Context) {
	suggestions, err := h.svc.SearchSuggestions(c.Request.Context(), c.Query("q"))
	if err != nil {
		common.RespondError(c, common.StatusFor(err), common.MessageFor(err))
		return
	}
	common.RespondSuccess(c, suggestions)
}

// SuggestCategories 分类名模糊补全
// @Summary      Suggest categories
// @Description  Fuzzy-match category names, best matches first
// @Tags         categories
// @Produce      json
// @Param        q      query     string  false  "Partial category name"
// @Param        limit  query     int     false  "Maximum number of results (default 10)"
// @Success      200    {object}  common.Response{data=[]categoryResponse}
// @Failure      500    {object}  common.Response  "Internal server error"
// @Router       /categories/suggest [get]
func (h *Handler) SuggestCategories(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 {
		limit = 10
	}

	categories, err := h.svc.SuggestCategories(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		common.RespondError(c, common.StatusFor(err), common.MessageFor(err))
		return
	}

	data := make([]categoryResponse, len(categories))
	for i, category := range categories {
		data[i] = categoryResponse{ID: category.ID, Name: category.Name}
	}
	common.RespondSuccess(c, data)
}

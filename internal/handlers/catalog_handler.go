package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/imrishuroy/storefront-checkout/internal/catalog"
)

const relatedPageSize = 4

// ProductPage is the product detail response.
type ProductPage struct {
	Product      *catalog.Product  `json:"product"`
	Price        string            `json:"price"`
	StockBadge   string            `json:"stock_badge"`
	Related      []catalog.Product `json:"related"`
	RelatedPages int               `json:"related_total_pages"`
	History      []catalog.Product `json:"browsing_history"`
}

// RegisterCatalogRoutes registers product, search, content page and
// browsing history routes.
func RegisterCatalogRoutes(r *gin.Engine, cfg HandlerConfig) {
	r.GET("/product/:slug", func(c *gin.Context) {
		ctx := c.Request.Context()
		visitor := cartID(c)
		page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
		if err != nil || page < 1 {
			page = 1
		}

		var (
			product   *catalog.Product
			published []catalog.Product
			viewed    []catalog.Viewed
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			p, err := cfg.Products.GetBySlug(gctx, c.Param("slug"))
			product = p
			return err
		})
		g.Go(func() error {
			ps, err := cfg.Products.Published(gctx)
			published = ps
			return err
		})
		g.Go(func() error {
			v, err := cfg.History.List(gctx, visitor)
			if err != nil {
				cfg.Logger.Warn("browsing history", zap.String("visitor", visitor), zap.Error(err))
				return nil
			}
			viewed = v
			return nil
		})
		err = g.Wait()
		if ctx.Err() != nil {
			// client went away; drop the late result
			c.Abort()
			return
		}
		if err != nil {
			writeError(c, cfg.Logger, err)
			return
		}

		if err := cfg.History.Add(ctx, visitor, catalog.Viewed{ID: product.ProductID, Category: product.Category}); err != nil {
			cfg.Logger.Warn("record product view", zap.String("visitor", visitor), zap.Error(err))
		}
		related, pages := catalog.RelatedFrom(published, product.Category, product.ProductID, page, relatedPageSize)
		c.JSON(http.StatusOK, ProductPage{
			Product:      product,
			Price:        cfg.Settings.FormatPrice(product.Price, currency(c)),
			StockBadge:   catalog.StockBadge(product.CountInStock),
			Related:      related,
			RelatedPages: pages,
			History:      catalog.FromHistory(published, viewed, catalog.HistoryViewed, product.ProductID, 0),
		})
	})

	r.GET("/search", func(c *gin.Context) {
		params := catalog.ParseSearchParams(c.Request.URL.Query())
		products, err := cfg.Products.Published(c.Request.Context())
		if err != nil {
			writeError(c, cfg.Logger, err)
			return
		}
		res := catalog.Search(products, params, cfg.Settings.PageSize())
		clearURLs := map[string]string{}
		for _, k := range []string{"q", "category", "tag", "price", "rating"} {
			clearURLs[k] = params.FilterURL(map[string]string{k: "all"})
		}
		c.JSON(http.StatusOK, gin.H{
			"title":       params.Title(),
			"params":      params,
			"result":      res,
			"categories":  catalog.Categories(products),
			"tags":        catalog.Tags(products),
			"sort_orders": catalog.SortOrders,
			"clear_urls":  clearURLs,
		})
	})

	r.GET("/page/:slug", func(c *gin.Context) {
		p, err := cfg.Pages.GetBySlug(c.Request.Context(), c.Param("slug"))
		if err != nil {
			writeError(c, cfg.Logger, err)
			return
		}
		c.JSON(http.StatusOK, p)
	})

	r.GET("/api/products/browsing-history", func(c *gin.Context) {
		ctx := c.Request.Context()
		typ := catalog.HistoryType(c.DefaultQuery("type", string(catalog.HistoryViewed)))
		if typ != catalog.HistoryViewed && typ != catalog.HistoryRelated {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_type"})
			return
		}
		data, err := browsingHistory(ctx, cfg, cartID(c), typ, c.Query("excludeId"))
		if err != nil {
			writeError(c, cfg.Logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": data})
	})
}

func browsingHistory(ctx context.Context, cfg HandlerConfig, visitor string, typ catalog.HistoryType, excludeID string) ([]catalog.Product, error) {
	viewed, err := cfg.History.List(ctx, visitor)
	if err != nil {
		return nil, err
	}
	if len(viewed) == 0 {
		return []catalog.Product{}, nil
	}
	products, err := cfg.Products.Published(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.FromHistory(products, viewed, typ, excludeID, 10), nil
}

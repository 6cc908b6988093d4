package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"farmersupply/internal/store"
)

/*
GET /api/products
- pagination is optional
- without page + limit every product is returned
*/
func GetProducts(catalog store.CatalogStore, pinger store.Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products"
		defer handlePanic(c, route)

		log.Debugf(
			"[%s] hit page=%s limit=%s category=%s search=%s",
			route,
			c.Query("page"),
			c.Query("limit"),
			c.Query("category"),
			c.Query("search"),
		)

		if err := ensureStoreAvailable(c.Request.Context(), pinger); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		filter := store.ProductFilter{
			Category: strings.TrimSpace(c.Query("category")),
			Search:   strings.TrimSpace(c.Query("search")),
		}

		pageStr := c.Query("page")
		limitStr := c.Query("limit")
		if pageStr != "" && limitStr != "" {
			page, limit, err := parsePaginationParams(pageStr, limitStr)
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, err.Error())
				return
			}
			filter.Skip = (page - 1) * limit
			filter.Limit = limit
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		products, err := catalog.ListProducts(ctx, filter)
		if err != nil {
			log.WithError(err).Errorf("[%s] list failed", route)
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		log.Debugf("[%s] returning %d products", route, len(products))
		c.JSON(http.StatusOK, products)
	}
}

func GetProduct(catalog store.CatalogStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products/:id"
		defer handlePanic(c, route)

		productID, ok := parseObjectID(c, route, c.Param("id"), "product id")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		product, err := catalog.GetProduct(ctx, productID)
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(c, http.StatusNotFound, route, "Product not found")
			return
		}
		if err != nil {
			log.WithError(err).Errorf("[%s] lookup failed", route)
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		product.Normalize()
		c.JSON(http.StatusOK, product)
	}
}

// GetSupplierProducts lists the calling supplier's own products.
func GetSupplierProducts(catalog store.CatalogStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products/supplier/my-products"
		defer handlePanic(c, route)

		caller, ok := requireCaller(c, route)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		products, err := catalog.ListProducts(ctx, store.ProductFilter{SupplierID: caller.ID})
		if err != nil {
			log.WithError(err).Errorf("[%s] list failed", route)
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		c.JSON(http.StatusOK, products)
	}
}

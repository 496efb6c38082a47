package pricing

import (
	"storefront-api/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler, jwtSecret string) {
	history := r.Group("/price-history")
	history.Use(middleware.AuthMiddleware(jwtSecret))
	{
		history.GET("/products/:productId", handler.ProductHistory)
		history.GET("/variants/:variantId", handler.VariantHistory)
		history.GET("", middleware.RoleMiddleware("admin"), handler.List)
	}
}

package cart

import (
	"storefront-api/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler, jwtSecret string) {
	carts := r.Group("/cart")
	carts.Use(middleware.AuthMiddleware(jwtSecret))
	{
		carts.GET("", handler.Detail)
		carts.GET("/count", handler.Count)
		carts.GET("/lookup", handler.Lookup)
		carts.DELETE("", handler.Clear)
		carts.DELETE("/session", handler.EndSession)

		carts.POST("/items", handler.AddItem)
		carts.PATCH("/items/:itemId", handler.UpdateQty)
		carts.DELETE("/items/:itemId", handler.RemoveItem)

		carts.POST("/discount", handler.ApplyDiscount)
		carts.DELETE("/discount", handler.RemoveDiscount)

		carts.PUT("/shipping", handler.UpdateShipping)
	}
}

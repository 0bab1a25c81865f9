package handlers

import (
	"github.com/gorilla/mux"
)

func NewRouter(ha *Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(ha.ErrorHandleMiddleware)

	router.HandleFunc("/catalog/more", ha.LoadMore).Methods("POST")
	router.HandleFunc("/catalog/scroll", ha.SaveScroll).Methods("POST")
	router.HandleFunc("/catalog/filters", ha.ApplyFilters).Methods("POST")
	router.HandleFunc("/catalog/filters", ha.ClearFilters).Methods("DELETE")
	router.HandleFunc("/catalog/session", ha.EndCatalogSession).Methods("DELETE")
	router.HandleFunc("/catalog/{path:.*}", ha.GetCatalog).Methods("GET")

	router.HandleFunc("/products/{id:[0-9]+}", ha.GetProduct).Methods("GET")
	router.HandleFunc("/products/{id:[0-9]+}/colors", ha.GetProductColors).Methods("GET")
	router.HandleFunc("/brands", ha.GetBrands).Methods("GET")
	router.HandleFunc("/sizes", ha.GetSizes).Methods("GET")
	router.HandleFunc("/categories", ha.GetAllCategories).Methods("GET")
	router.HandleFunc("/colors", ha.GetColors).Methods("GET")
	router.HandleFunc("/contacts", ha.GetContacts).Methods("GET")

	router.HandleFunc("/cart", ha.GetCart).Methods("GET")
	router.HandleFunc("/cart", ha.AddToCart).Methods("POST")
	router.HandleFunc("/cart", ha.UpdateCartQuantity).Methods("PATCH")
	router.HandleFunc("/cart", ha.DeleteFromCart).Methods("DELETE")
	router.HandleFunc("/cart/color", ha.SelectCartColor).Methods("POST")
	router.HandleFunc("/cart/count", ha.GetCartCount).Methods("GET")
	router.HandleFunc("/cart/events", ha.CartEvents).Methods("GET")
	router.HandleFunc("/cart/checkout", ha.CreateOrder).Methods("POST")

	return router
}

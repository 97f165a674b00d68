package query

// Re-export read models from readmodel package so callers need one import
import "github.com/example/ec-checkout/internal/readmodel"

type ProductPage = readmodel.ProductPage
type ProductDetail = readmodel.ProductDetail
type CartView = readmodel.CartView
type CustomerView = readmodel.CustomerView

package catalog

import "context"

// Store backs the catalog service, the remote side of the storefront's
// single fetch.
type Store interface {
	Ping(ctx context.Context) error
	ListSortedByID(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id int) (Product, bool, error)
}

func NewStore() Store {
	return NewMemStore(SeedProducts()...)
}

// SeedProducts is the demo inventory used by the in-memory store.
func SeedProducts() []Product {
	return []Product{
		{ID: 1, Title: "Wireless Headphones Pro", Price: 129.99, Category: "electronics",
			Description: "Over-ear wireless headphones with active noise cancelling.",
			Image:       "https://images.example.com/products/1.jpg", Rating: Rating{Rate: 4.6, Count: 320}},
		{ID: 2, Title: "Mechanical Keyboard", Price: 49.90, Category: "electronics",
			Description: "Tenkeyless keyboard with hot-swappable switches.",
			Image:       "https://images.example.com/products/2.jpg", Rating: Rating{Rate: 4.4, Count: 210}},
		{ID: 3, Title: "The Pragmatic Programmer", Price: 39.95, Category: "books",
			Description: "Classic book on the craft of software development.",
			Image:       "https://images.example.com/products/3.jpg", Rating: Rating{Rate: 4.8, Count: 1043}},
		{ID: 4, Title: "Cotton Crew T-Shirt", Price: 15.99, Category: "men's clothing",
			Description: "Slim fit cotton shirt for everyday wear.",
			Image:       "https://images.example.com/products/4.jpg", Rating: Rating{Rate: 4.1, Count: 259}},
		{ID: 5, Title: "Bluetooth Speaker", Price: 59.00, Category: "electronics",
			Description: "Portable speaker, pairs with wireless headphones and phones.",
			Image:       "https://images.example.com/products/5.jpg", Rating: Rating{Rate: 4.3, Count: 146}},
		{ID: 6, Title: "Silver Dragon Bracelet", Price: 695.00, Category: "jewelery",
			Description: "Sterling silver chain bracelet.",
			Image:       "https://images.example.com/products/6.jpg", Rating: Rating{Rate: 4.6, Count: 400}},
	}
}

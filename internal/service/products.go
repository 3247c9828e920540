package service

import (
	"context"
	"fmt"

	"github.com/subgate/subgate/internal/model"
)

// ProductStore is the slice of the store used to provision products.
type ProductStore interface {
	CreateProduct(ctx context.Context, p *model.Product) error
	SetProductAPIKeyHash(ctx context.Context, id, hash string) error
}

// ProductService provisions products and rotates their API keys. Plaintext
// keys are returned to the caller once and only their hashes are stored.
type ProductService struct {
	store  ProductStore
	hasher Hasher
}

func NewProductService(store ProductStore, hasher Hasher) *ProductService {
	return &ProductService{store: store, hasher: hasher}
}

// Create provisions a product. An empty id is derived from the name. When
// key is empty a random key is generated; a non-empty key must carry the
// product's prefix.
func (s *ProductService) Create(ctx context.Context, id, name, key string) (*model.Product, string, error) {
	if id == "" {
		id = ProductIDFromName(name)
	}
	if err := ValidateProductID(id); err != nil {
		return nil, "", err
	}

	key, hash, err := s.issue(id, key)
	if err != nil {
		return nil, "", err
	}

	p := &model.Product{ID: id, Name: name, APIKeyHash: hash, IsActive: true}
	if err := s.store.CreateProduct(ctx, p); err != nil {
		return nil, "", err
	}
	return p, key, nil
}

// RotateKey replaces the product's key. The old key stops working as soon as
// the new hash is stored.
func (s *ProductService) RotateKey(ctx context.Context, id string) (string, error) {
	key, hash, err := s.issue(id, "")
	if err != nil {
		return "", err
	}
	if err := s.store.SetProductAPIKeyHash(ctx, id, hash); err != nil {
		return "", err
	}
	return key, nil
}

func (s *ProductService) issue(productID, key string) (string, string, error) {
	if key == "" {
		var err error
		if key, err = GenerateAPIKey(productID); err != nil {
			return "", "", err
		}
	} else if prefix, ok := ProductIDFromKey(key); !ok || prefix != productID {
		return "", "", fmt.Errorf("%w: key must start with %q", ErrMalformedCredential, productID+KeySeparator)
	} else if len(key) > MaxSecretLength {
		return "", "", ErrSecretTooLong
	}

	hash, err := s.hasher.Hash(key)
	if err != nil {
		return "", "", err
	}
	return key, hash, nil
}

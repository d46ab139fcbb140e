package catalog

import "errors"

var (
	ErrInvalidProduct   = errors.New("catalog: invalid product")
	ErrInvalidID        = errors.New("catalog: invalid object id")
	ErrFailedToCreate   = errors.New("catalog: failed to create product")
	ErrFailedToLoadSale = errors.New("catalog: failed to load best sellers")
)

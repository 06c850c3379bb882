// internal/models/catalog_action.go
package models

type CatalogAction string

const (
	CatalogActionInsert CatalogAction = "insert"
	CatalogActionUpdate CatalogAction = "update"
	CatalogActionDelete CatalogAction = "delete"
)

func (a CatalogAction) Valid() bool {
	switch a {
	case CatalogActionInsert, CatalogActionUpdate, CatalogActionDelete:
		return true
	}
	return false
}

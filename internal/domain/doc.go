// Package domain contains the entities shared by the catalog and notifications modules.
package domain

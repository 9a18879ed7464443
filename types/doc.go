// Package types provides core types used across the councilflow framework.
// This package has ZERO dependencies on other councilflow packages to avoid
// circular imports. All other packages should import types from here.
package types

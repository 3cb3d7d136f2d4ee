// Package types provides core types shared across the flowgrid engine.
// This package has ZERO dependencies on other flowgrid packages to avoid
// circular imports. All other packages should import types from here.
package types

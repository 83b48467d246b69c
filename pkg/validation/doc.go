// Package validation builds request validators on go-playground/validator
// and turns their failures into *auth.ValidationError values.
//
// Every service constructs its own validator with New and registers any
// domain rules it needs (recipes adds "category"). Struct runs the rules and
// reports every failing field at once, in declaration order, with the
// human-readable message the caller supplies:
//
//	v := validation.New()
//	err := validation.Struct(ctx, v, req, "Validation failed", validation.Messages{
//		"email.required": "Email is required",
//	})
package validation

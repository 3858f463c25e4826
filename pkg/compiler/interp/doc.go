/*
Package interp implements a small interpolation syntax for the template engine.

Literal text is copied verbatim. Expressions are wrapped in ${ and }:

	Hello, ${model.Name}!
	${Name} is the same as ${model.Name}
	${model.Author.Email}           nested struct fields and map keys
	${partial("footer")}            render another template with no model
	${partial("card", model.User)}  render another template against a value
	${partial("card", model)}       ... or against the current model
	$$                              a literal dollar sign

Missing fields render as nothing. Compilation reports every malformed
expression it finds, each with a name:line:column location.
*/
package interp

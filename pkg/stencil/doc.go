// Package stencil provides a text template engine whose renders can be
// cancelled while they run.
//
// Templates are compiled once into an element tree. During compilation every
// loop receives a cancellation checkpoint at the start of its body, so a
// render whose context is cancelled or times out stops at the next loop
// iteration instead of running to completion. This holds for loops that would
// never terminate on their own.
//
// # Quick Start
//
//	engine := stencil.New()
//	tmpl, err := engine.Parse("greeting", "Hello {{for n in names}}{{n}} {{end}}")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
//	defer cancel()
//
//	out, err := tmpl.Render(ctx, stencil.TemplateData{
//	    "names": []string{"Ada", "Grace"},
//	})
//	if stencil.IsCancelled(err) {
//	    // the render ran past its deadline
//	}
//
// # Template Syntax
//
// All template expressions use double curly braces {{}}:
//
//	{{name}}                             - Variable
//	{{customer.address}}                 - Nested field access
//	{{items[0]}}                         - Index access
//	{{(price + tax) * qty}}              - Arithmetic
//	{{uppercase(name)}}                  - Function call
//
// Control Structures:
//
//	{{if x}}...{{elsif y}}...{{else}}...{{end}}
//	{{unless condition}}...{{end}}
//	{{for item in items}}...{{end}}
//	{{for i, item in items}}...{{end}}
//	{{while condition}}...{{end}}
//	{{include "header"}}
//	{{# comment }}
//
// # Configuration
//
// Engines read a Config. The global one is built from STENCIL_* environment
// variables and can be replaced with SetGlobalConfig; LoadConfigFile reads
// the same settings from an HCL file:
//
//	log_level        = "debug"
//	strict_mode      = true
//	max_render_depth = 10
//	render_timeout   = "5s"
//
// # Dumps
//
// Template.Dump(true) reproduces the template source without the injected
// checkpoints. Template.Dump(false) marks every checkpoint with a
// {{# ##cancellationCheck }} comment tag, which parses back to the same
// template.
package stencil

// internal/geometry/layout.go
package geometry

import "github.com/solatis/canvasagent/internal/types"

/*
 * Composite layout compilation.
 *
 * Each archetype is a fixed template emitting descriptors in back-to-front paint
 * order: shadows and backgrounds first, then structural and interactive elements,
 * then the text that sits on them. Item-driven archetypes (navbar, button_group,
 * form, dashboard) emit one group per item at a computed offset, each group again
 * ordered structure before text. A renderer that paints in list order therefore
 * stacks the result correctly without a z-index.
 */

// Default content used when the caller supplies no items or fields.
var (
	DefaultNavbarItems    = []string{"Home", "About", "Services", "Contact"}
	DefaultButtonItems    = []string{"Button 1", "Button 2", "Button 3"}
	DefaultFormFields     = []string{"Name", "Email", "Message"}
	DefaultDashboardStats = []string{"Users", "Revenue", "Orders", "Conversion"}
)

// Default palette of composite layouts.
const (
	defaultPrimary    = "#3B82F6"
	defaultSecondary  = "#1F2937"
	defaultBackground = "#FFFFFF"
	shadowColor       = "#000000"
	shadowOpacity     = 0.12
	shadowOffset      = 4.0
	borderColor       = "#E5E7EB"
	inputBorder       = "#D1D5DB"
	mutedText         = "#6B7280"
	placeholderFill   = "#E5E7EB"
	onPrimaryText     = "#FFFFFF"
)

// Minimum widths below which a template's inner elements would collapse.
// Requested widths under these are raised to them.
const (
	minCardWidth     = 64.0
	minLoginWidth    = 96.0
	minFormWidth     = 96.0
	minStatCardWidth = 64.0
	dashboardSidebar = 200.0
	dashboardGutter  = 24.0
)

// CompileLayout expands a composite layout archetype into ordered descriptors.
// Unknown archetypes compile to nothing.
func CompileLayout(spec LayoutSpec) []types.ShapeDescriptor {
	anchor := originOr(spec.Position, DefaultLayoutAnchor)
	p := newPalette(spec.Config.Colors)
	cfg := spec.Config

	switch spec.Layout {
	case LayoutCard:
		return card(anchor, cfg, p)
	case LayoutLoginForm:
		return loginForm(anchor, cfg, p)
	case LayoutNavbar:
		return navbar(anchor, cfg, p)
	case LayoutButtonGroup:
		return buttonGroup(anchor, cfg, p)
	case LayoutForm:
		return form(anchor, cfg, p)
	case LayoutDashboard:
		return dashboard(anchor, cfg, p)
	}
	return nil
}

type palette struct {
	primary    string
	secondary  string
	background string
}

func newPalette(c Colors) palette {
	p := palette{primary: defaultPrimary, secondary: defaultSecondary, background: defaultBackground}
	if c.Primary != "" {
		p.primary = c.Primary
	}
	if c.Secondary != "" {
		p.secondary = c.Secondary
	}
	if c.Background != "" {
		p.background = c.Background
	}
	return p
}

// card: shadow, background, image placeholder, placeholder label, title, body, button, button label.
func card(at Point, cfg LayoutConfig, p palette) []types.ShapeDescriptor {
	w := atLeast(widthOr(cfg.Width, 300), minCardWidth)
	h := 400.0
	inner := w - 32

	return []types.ShapeDescriptor{
		shadow(at, w, h, 12),
		panel(at, w, h, p.background, 12),
		rect(at.X+16, at.Y+16, inner, 160, placeholderFill, 8),
		label(at.X+16, at.Y+86, inner, 20, "Image", 14, mutedText, ""),
		label(at.X+16, at.Y+196, inner, 28, textOr(cfg.Title, "Card Title"), 20, p.secondary, "bold"),
		label(at.X+16, at.Y+232, inner, 60, textOr(cfg.Body, "Card description goes here."), 14, mutedText, ""),
		rect(at.X+16, at.Y+h-64, inner, 44, p.primary, 8),
		label(at.X+16, at.Y+h-52, inner, 20, textOr(cfg.ButtonText, "Learn More"), 16, onPrimaryText, "bold"),
	}
}

// loginForm: panel layers, two inputs and a button, then all text.
func loginForm(at Point, cfg LayoutConfig, p palette) []types.ShapeDescriptor {
	w := atLeast(widthOr(cfg.Width, 360), minLoginWidth)
	h := 340.0
	inner := w - 48

	return []types.ShapeDescriptor{
		shadow(at, w, h, 12),
		panel(at, w, h, p.background, 12),
		input(at.X+24, at.Y+96, inner),
		input(at.X+24, at.Y+176, inner),
		rect(at.X+24, at.Y+252, inner, 44, p.primary, 8),
		label(at.X+24, at.Y+24, inner, 32, textOr(cfg.Title, "Login"), 24, p.secondary, "bold"),
		label(at.X+24, at.Y+72, inner, 20, "Username", 14, mutedText, ""),
		label(at.X+24, at.Y+152, inner, 20, "Password", 14, mutedText, ""),
		label(at.X+24, at.Y+264, inner, 20, textOr(cfg.ButtonText, "Sign In"), 16, onPrimaryText, "bold"),
	}
}

// navbar: bar, brand, then one label per item spaced 110 apart.
func navbar(at Point, cfg LayoutConfig, p palette) []types.ShapeDescriptor {
	w := widthOr(cfg.Width, 800)
	items := itemsOr(cfg.Items, DefaultNavbarItems)

	shapes := []types.ShapeDescriptor{
		rect(at.X, at.Y, w, 60, p.secondary, 0),
		label(at.X+20, at.Y+18, 160, 24, textOr(cfg.Title, "Brand"), 20, onPrimaryText, "bold"),
	}
	for i, item := range items {
		shapes = append(shapes, label(at.X+200+float64(i)*110, at.Y+20, 100, 20, item, 16, onPrimaryText, ""))
	}
	return shapes
}

// buttonGroup: one button and label per item, laid out horizontally.
func buttonGroup(at Point, cfg LayoutConfig, p palette) []types.ShapeDescriptor {
	const bw, bh, gap = 120.0, 44.0, 12.0
	items := itemsOr(cfg.Items, DefaultButtonItems)

	shapes := make([]types.ShapeDescriptor, 0, 2*len(items))
	for i, item := range items {
		x := at.X + float64(i)*(bw+gap)
		shapes = append(shapes,
			rect(x, at.Y, bw, bh, p.primary, 8),
			label(x, at.Y+12, bw, 20, item, 16, onPrimaryText, "bold"),
		)
	}
	return shapes
}

// form: panel, title, one input+label group per field, submit button.
func form(at Point, cfg LayoutConfig, p palette) []types.ShapeDescriptor {
	w := atLeast(widthOr(cfg.Width, 400), minFormWidth)
	fields := itemsOr(cfg.Fields, DefaultFormFields)
	inner := w - 48
	h := 80 + float64(len(fields))*80 + 80

	shapes := []types.ShapeDescriptor{
		shadow(at, w, h, 12),
		panel(at, w, h, p.background, 12),
		label(at.X+24, at.Y+24, inner, 32, textOr(cfg.Title, "Form"), 24, p.secondary, "bold"),
	}
	for i, field := range fields {
		top := at.Y + 72 + float64(i)*80
		shapes = append(shapes,
			input(at.X+24, top+24, inner),
			label(at.X+24, top, inner, 20, field, 14, mutedText, ""),
		)
	}
	buttonY := at.Y + h - 68
	shapes = append(shapes,
		rect(at.X+24, buttonY, inner, 44, p.primary, 8),
		label(at.X+24, buttonY+12, inner, 20, textOr(cfg.ButtonText, "Submit"), 16, onPrimaryText, "bold"),
	)
	return shapes
}

// dashboard: page, sidebar, header, stat cards (card, label, value), chart panel, header title.
func dashboard(at Point, cfg LayoutConfig, p palette) []types.ShapeDescriptor {
	const sidebar, gutter = dashboardSidebar, dashboardGutter
	stats := itemsOr(cfg.Items, DefaultDashboardStats)
	n := float64(len(stats))
	w := atLeast(widthOr(cfg.Width, 1000), sidebar+gutter*(n+1)+minStatCardWidth*n)
	h := 640.0

	content := at.X + sidebar
	contentW := w - sidebar
	cardW := (contentW - gutter*float64(len(stats)+1)) / float64(len(stats))

	shapes := []types.ShapeDescriptor{
		rect(at.X, at.Y, w, h, "#F3F4F6", 0),
		rect(at.X, at.Y, sidebar, h, p.secondary, 0),
		panel(Point{X: content, Y: at.Y}, contentW, 64, p.background, 0),
	}
	for i, stat := range stats {
		x := content + gutter + float64(i)*(cardW+gutter)
		shapes = append(shapes,
			panel(Point{X: x, Y: at.Y + 88}, cardW, 120, p.background, 8),
			label(x+16, at.Y+104, cardW-32, 20, stat, 14, mutedText, ""),
			label(x+16, at.Y+136, cardW-32, 36, "0", 28, p.secondary, "bold"),
		)
	}
	shapes = append(shapes,
		panel(Point{X: content + gutter, Y: at.Y + 232}, contentW-2*gutter, h-256, p.background, 8),
		rect(content+gutter+16, at.Y+296, contentW-2*gutter-32, h-336, placeholderFill, 4),
		label(content+gutter+16, at.Y+248, 200, 24, "Overview", 18, p.secondary, "bold"),
		label(content+gutter, at.Y+20, contentW-2*gutter, 28, textOr(cfg.Title, "Dashboard"), 22, p.secondary, "bold"),
		label(at.X+20, at.Y+20, sidebar-40, 24, "Menu", 18, onPrimaryText, "bold"),
	)
	return shapes
}

func shadow(at Point, w, h, radius float64) types.ShapeDescriptor {
	d := rect(at.X+shadowOffset, at.Y+shadowOffset, w, h, shadowColor, radius)
	d.Opacity = shadowOpacity
	return d
}

func panel(at Point, w, h float64, fill string, radius float64) types.ShapeDescriptor {
	d := rect(at.X, at.Y, w, h, fill, radius)
	d.Stroke = borderColor
	d.StrokeWidth = 1
	return d
}

func input(x, y, w float64) types.ShapeDescriptor {
	d := rect(x, y, w, 40, defaultBackground, 6)
	d.Stroke = inputBorder
	d.StrokeWidth = 1
	return d
}

func rect(x, y, w, h float64, fill string, radius float64) types.ShapeDescriptor {
	return types.ShapeDescriptor{
		Type:         types.ShapeRectangle,
		X:            x,
		Y:            y,
		Width:        w,
		Height:       h,
		Fill:         fill,
		Opacity:      DefaultOpacity,
		BlendMode:    DefaultBlendMode,
		CornerRadius: radius,
	}
}

func label(x, y, w, h float64, text string, size float64, color, weight string) types.ShapeDescriptor {
	return types.ShapeDescriptor{
		Type:       types.ShapeText,
		X:          x,
		Y:          y,
		Width:      w,
		Height:     h,
		Fill:       color,
		Opacity:    DefaultOpacity,
		BlendMode:  DefaultBlendMode,
		Text:       text,
		FontSize:   size,
		FontFamily: DefaultFontFamily,
		FontWeight: weight,
	}
}

func widthOr(w, fallback float64) float64 {
	if w <= 0 {
		return fallback
	}
	return w
}

func atLeast(w, floor float64) float64 {
	if w < floor {
		return floor
	}
	return w
}

func textOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// itemsOr returns items, the defaults when empty, truncated to MaxLayoutItems.
func itemsOr(items, defaults []string) []string {
	if len(items) == 0 {
		return defaults
	}
	if len(items) > types.MaxLayoutItems {
		return items[:types.MaxLayoutItems]
	}
	return items
}

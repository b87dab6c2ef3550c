package dom

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/grab/pkg/logging"
	"github.com/entrhq/grab/pkg/types"
)

// maxRectResults bounds rectangle queries so a page-wide drag cannot
// return thousands of handles.
const maxRectResults = 50

// PageAdapter implements Adapter over a Playwright page. Element handles
// issued by the adapter are remembered so selection events can refer back
// to them by id; Close releases every outstanding handle.
type PageAdapter struct {
	page      playwright.Page
	host      ClipboardSink
	grabbable GrabbablePredicate
	logger    *logging.Logger

	mu      sync.Mutex
	handles map[string]*pageElement
	closed  bool
}

// PageAdapterOption customizes a PageAdapter.
type PageAdapterOption func(*PageAdapter)

// WithHostClipboard sets the fallback clipboard sink.
func WithHostClipboard(sink ClipboardSink) PageAdapterOption {
	return func(a *PageAdapter) { a.host = sink }
}

// WithGrabbablePredicate replaces the default grabbable predicate.
func WithGrabbablePredicate(p GrabbablePredicate) PageAdapterOption {
	return func(a *PageAdapter) { a.grabbable = p }
}

// WithLogger sets the component logger.
func WithLogger(logger *logging.Logger) PageAdapterOption {
	return func(a *PageAdapter) { a.logger = logger }
}

// NewPageAdapter wraps a Playwright page.
func NewPageAdapter(page playwright.Page, opts ...PageAdapterOption) *PageAdapter {
	a := &PageAdapter{
		page:      page,
		host:      HostClipboard{},
		grabbable: NewGrabbablePredicate(nil),
		logger:    logging.NewNopLogger("dom"),
		handles:   make(map[string]*pageElement),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// pageElement is the Playwright-backed Element.
type pageElement struct {
	handle   playwright.ElementHandle
	id       string
	tagName  string
	selector string
}

func (e *pageElement) HandleID() string { return e.id }
func (e *pageElement) TagName() string  { return e.tagName }
func (e *pageElement) Selector() string { return e.selector }

func (e *pageElement) Attached(_ context.Context) bool {
	connected, err := e.handle.Evaluate("el => el.isConnected")
	if err != nil {
		return false
	}
	b, _ := connected.(bool)
	return b
}

func (e *pageElement) Text(_ context.Context) (string, error) {
	text, err := e.handle.TextContent()
	if err != nil {
		return "", fmt.Errorf("failed to read text content: %w", err)
	}
	return text, nil
}

func (e *pageElement) OuterHTML(_ context.Context) (string, error) {
	raw, err := e.handle.Evaluate("el => el.outerHTML")
	if err != nil {
		return "", fmt.Errorf("failed to read outer HTML: %w", err)
	}
	return asString(raw), nil
}

// wrapHandle registers an element handle and caches its tag and selector.
func (a *PageAdapter) wrapHandle(handle playwright.ElementHandle) (*pageElement, error) {
	info, err := handle.Evaluate(`el => ({
		tag: el.tagName.toLowerCase(),
		selector: el.tagName.toLowerCase()
			+ (el.id ? "#" + el.id : "")
			+ (el.classList.length ? "." + [...el.classList].join(".") : ""),
	})`)
	if err != nil {
		return nil, fmt.Errorf("failed to describe element: %w", err)
	}
	m, _ := info.(map[string]interface{})

	el := &pageElement{
		handle:   handle,
		id:       uuid.New().String(),
		tagName:  asString(m["tag"]),
		selector: asString(m["selector"]),
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		handle.Dispose()
		return nil, fmt.Errorf("adapter is closed")
	}
	a.handles[el.id] = el
	return el, nil
}

// ElementByHandle resolves a previously issued handle id. Nil for unknown ids.
func (a *PageAdapter) ElementByHandle(id string) Element {
	a.mu.Lock()
	defer a.mu.Unlock()
	if el, ok := a.handles[id]; ok {
		return el
	}
	return nil
}

// ElementAtPoint resolves the topmost grabbable element at viewport coordinates.
func (a *PageAdapter) ElementAtPoint(ctx context.Context, x, y float64) (Element, error) {
	jsHandle, err := a.page.EvaluateHandle(
		"([x, y]) => document.elementFromPoint(x, y)",
		[]interface{}{x, y},
	)
	if err != nil {
		return nil, fmt.Errorf("element-at-point query failed: %w", err)
	}

	handle := jsHandle.AsElement()
	if handle == nil {
		jsHandle.Dispose()
		return nil, nil
	}

	el, err := a.wrapHandle(handle)
	if err != nil {
		return nil, err
	}
	if !a.grabbable(el) {
		return nil, nil
	}
	return el, nil
}

// rectQueryJS finds elements whose page-space box satisfies the given
// containment test, skipping elements whose ancestor already matched so a
// drag selects top-level regions rather than every descendant.
const rectQueryJS = `([x, y, w, h, strict, limit]) => {
	const within = (r) => {
		const left = r.left + window.scrollX;
		const top = r.top + window.scrollY;
		const right = left + r.width;
		const bottom = top + r.height;
		if (strict) {
			return left >= x && top >= y && right <= x + w && bottom <= y + h;
		}
		return left < x + w && right > x && top < y + h && bottom > y;
	};
	const matched = [];
	for (const el of document.body.querySelectorAll("*")) {
		if (matched.length >= limit) break;
		const r = el.getBoundingClientRect();
		if (r.width === 0 || r.height === 0) continue;
		if (!within(r)) continue;
		if (matched.some((m) => m.contains(el))) continue;
		matched.push(el);
	}
	return matched;
}`

func (a *PageAdapter) elementsByRect(rect types.Rect, strict bool) ([]Element, error) {
	jsHandle, err := a.page.EvaluateHandle(rectQueryJS, []interface{}{
		rect.X, rect.Y, rect.Width, rect.Height, strict, maxRectResults,
	})
	if err != nil {
		return nil, fmt.Errorf("rectangle query failed: %w", err)
	}
	defer jsHandle.Dispose()

	props, err := jsHandle.GetProperties()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate rectangle results: %w", err)
	}

	elements := make([]Element, 0, len(props))
	for i := 0; i < len(props); i++ {
		prop, ok := props[fmt.Sprintf("%d", i)]
		if !ok {
			continue
		}
		handle := prop.AsElement()
		if handle == nil {
			continue
		}
		el, err := a.wrapHandle(handle)
		if err != nil {
			a.logger.Warnf("dropping rectangle result: %v", err)
			continue
		}
		if a.grabbable(el) {
			elements = append(elements, el)
		}
	}
	return elements, nil
}

// ElementsInRect resolves grabbable elements strictly contained by the rectangle.
func (a *PageAdapter) ElementsInRect(_ context.Context, rect types.Rect) ([]Element, error) {
	return a.elementsByRect(rect, true)
}

// ElementsIntersectingRect resolves grabbable elements intersecting the rectangle.
func (a *PageAdapter) ElementsIntersectingRect(_ context.Context, rect types.Rect) ([]Element, error) {
	return a.elementsByRect(rect, false)
}

// ElementBounds computes the element's rendered box including presentation
// details the overlay mirrors.
func (a *PageAdapter) ElementBounds(_ context.Context, el Element) (types.Bounds, error) {
	pe, err := a.pageElementOf(el)
	if err != nil {
		return types.Bounds{}, err
	}

	box, err := pe.handle.BoundingBox()
	if err != nil {
		return types.Bounds{}, fmt.Errorf("failed to compute bounding box: %w", err)
	}
	if box == nil {
		return types.Bounds{}, fmt.Errorf("element has no layout box")
	}

	style, err := pe.handle.Evaluate(`el => {
		const cs = getComputedStyle(el);
		return { borderRadius: cs.borderRadius, transform: cs.transform };
	}`)
	if err != nil {
		return types.Bounds{}, fmt.Errorf("failed to read computed style: %w", err)
	}
	m, _ := style.(map[string]interface{})

	return types.Bounds{
		X:            box.X,
		Y:            box.Y,
		Width:        box.Width,
		Height:       box.Height,
		BorderRadius: asString(m["borderRadius"]),
		Transform:    asString(m["transform"]),
	}, nil
}

// componentNameJS walks up from the element looking first for explicit
// debug attributes, then for a React fiber with a named function component.
const componentNameJS = `el => {
	for (let node = el; node; node = node.parentElement) {
		const explicit = node.getAttribute && node.getAttribute("data-component");
		if (explicit) return explicit;
		const fiberKey = Object.keys(node).find((k) => k.startsWith("__reactFiber$"));
		if (!fiberKey) continue;
		for (let fiber = node[fiberKey]; fiber; fiber = fiber.return) {
			const t = fiber.type;
			if (typeof t === "function" && t.name) return t.name;
			if (t && typeof t === "object" && t.displayName) return t.displayName;
		}
	}
	return "";
}`

// NearestComponentName resolves the closest enclosing component name.
func (a *PageAdapter) NearestComponentName(_ context.Context, el Element) (string, error) {
	pe, err := a.pageElementOf(el)
	if err != nil {
		return "", err
	}
	name, err := pe.handle.Evaluate(componentNameJS)
	if err != nil {
		return "", fmt.Errorf("component name lookup failed: %w", err)
	}
	return asString(name), nil
}

// sourceStackJS resolves debug source locations from React fibers, falling
// back to data-source="file:line" attributes.
const sourceStackJS = `el => {
	const frames = [];
	for (let node = el; node; node = node.parentElement) {
		const ds = node.getAttribute && node.getAttribute("data-source");
		if (ds) {
			const idx = ds.lastIndexOf(":");
			frames.push({
				component: node.getAttribute("data-component") || "",
				fileName: idx > 0 ? ds.slice(0, idx) : ds,
				lineNumber: idx > 0 ? parseInt(ds.slice(idx + 1), 10) || 0 : 0,
			});
			continue;
		}
		const fiberKey = Object.keys(node).find((k) => k.startsWith("__reactFiber$"));
		if (!fiberKey) continue;
		for (let fiber = node[fiberKey]; fiber; fiber = fiber.return) {
			const src = fiber._debugSource;
			if (!src) continue;
			frames.push({
				component: (fiber.type && (fiber.type.displayName || fiber.type.name)) || "",
				fileName: src.fileName || "",
				lineNumber: src.lineNumber || 0,
			});
		}
		break;
	}
	return frames;
}`

// SourceStack resolves the element's render stack, or nil when the page
// exposes no source information.
func (a *PageAdapter) SourceStack(_ context.Context, el Element) ([]types.SourceFrame, error) {
	pe, err := a.pageElementOf(el)
	if err != nil {
		return nil, err
	}
	raw, err := pe.handle.Evaluate(sourceStackJS)
	if err != nil {
		return nil, fmt.Errorf("source stack lookup failed: %w", err)
	}

	entries, _ := raw.([]interface{})
	frames := make([]types.SourceFrame, 0, len(entries))
	for _, entry := range entries {
		m, _ := entry.(map[string]interface{})
		frame := types.SourceFrame{ComponentName: asString(m["component"])}
		if fileName := asString(m["fileName"]); fileName != "" {
			frame.Source = &types.SourceLocation{
				FileName:   fileName,
				LineNumber: asInt(m["lineNumber"]),
			}
		}
		frames = append(frames, frame)
	}
	if len(frames) == 0 {
		return nil, nil
	}
	return frames, nil
}

// ElementContext extracts the machine-readable snippet the copier places on
// the clipboard: a header naming tag, component and source, then the
// cleaned markup.
func (a *PageAdapter) ElementContext(ctx context.Context, el Element, opts ContextOptions) (string, error) {
	raw, err := el.OuterHTML(ctx)
	if err != nil {
		return "", err
	}

	snippet, err := BuildSnippet(raw, opts.MaxLines)
	if err != nil {
		return "", err
	}

	header := "<" + el.TagName() + ">"
	if name, err := a.NearestComponentName(ctx, el); err == nil && name != "" {
		header += " in " + name
	}
	if frames, err := a.SourceStack(ctx, el); err == nil {
		if frame := types.FirstLocatedFrame(frames); frame != nil {
			header += fmt.Sprintf(" (%s:%d)", frame.Source.FileName, frame.Source.LineNumber)
		}
	}

	return header + "\n" + snippet.Markup, nil
}

// WriteClipboard writes through the page clipboard API, falling back to the
// host clipboard when the page denies the write (no permission, no focus).
func (a *PageAdapter) WriteClipboard(ctx context.Context, text string) error {
	_, err := a.page.Evaluate("text => navigator.clipboard.writeText(text)", text)
	if err == nil {
		return nil
	}
	a.logger.Debugf("page clipboard write failed, using host clipboard: %v", err)

	if hostErr := a.host.Write(ctx, text); hostErr != nil {
		return fmt.Errorf("clipboard write failed: %w", hostErr)
	}
	return nil
}

// ScrollBy scrolls the window by a page-space delta.
func (a *PageAdapter) ScrollBy(_ context.Context, dx, dy float64) error {
	_, err := a.page.Evaluate("([dx, dy]) => window.scrollBy(dx, dy)", []interface{}{dx, dy})
	if err != nil {
		return fmt.Errorf("scroll failed: %w", err)
	}
	return nil
}

// IsValidGrabbable applies the adapter's grabbable predicate.
func (a *PageAdapter) IsValidGrabbable(el Element) bool {
	return a.grabbable(el)
}

// Close releases every outstanding element handle. The adapter is unusable
// afterwards.
func (a *PageAdapter) Close() {
	a.mu.Lock()
	handles := a.handles
	a.handles = make(map[string]*pageElement)
	a.closed = true
	a.mu.Unlock()

	for _, el := range handles {
		el.handle.Dispose()
	}
}

func (a *PageAdapter) pageElementOf(el Element) (*pageElement, error) {
	pe, ok := el.(*pageElement)
	if !ok || pe == nil {
		return nil, fmt.Errorf("element does not belong to this adapter")
	}
	return pe, nil
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

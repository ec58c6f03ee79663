package emitter

import (
	"encoding/json"
	"fmt"
	"html/template"
	"os"

	"github.com/rs/zerolog"

	cleanup "github.com/intel/gprofiler-go/internal/errors"
)

// flameNode is one node of the nested call tree the flamegraph template
// walks client-side: Name is the frame text, Value the sample count
// rolled up through this node and its children, Children keyed by frame
// name so repeated call paths collapse into one box.
type flameNode struct {
	Name     string                `json:"name"`
	Value    int                   `json:"value"`
	Children map[string]*flameNode `json:"children"`
}

func newFlameRoot() *flameNode {
	return &flameNode{Name: "root", Children: map[string]*flameNode{}}
}

func (n *flameNode) add(frames []string, count int) {
	n.Value += count
	cur := n
	for _, f := range frames {
		child, ok := cur.Children[f]
		if !ok {
			child = &flameNode{Name: f, Children: map[string]*flameNode{}}
			cur.Children[f] = child
		}
		child.Value += count
		cur = child
	}
}

// flamegraphTemplate is a small self-contained HTML page: the stack tree
// is embedded as JSON and rendered into nested <div> boxes by an inline
// script, so the output needs no external JS bundle or network fetch to
// view offline - there is no Go-ecosystem flamegraph-rendering library in
// the retrieval pack to depend on instead, so this one optional artifact
// is built on the standard library's html/template.
var flamegraphTemplate = template.Must(template.New("flamegraph").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>gprofiler flamegraph - cycle {{.Cycle}}</title>
<style>
body { font-family: monospace; margin: 0; }
.frame { position: relative; box-sizing: border-box; border: 1px solid #fff; background: #f7a072; overflow: hidden; white-space: nowrap; font-size: 12px; cursor: pointer; }
.frame:hover { background: #ffcb8e; }
#container { position: relative; width: 100%; }
</style></head>
<body>
<div id="container"></div>
<script>
const data = {{.TreeJSON}};
const container = document.getElementById("container");
const rowHeight = 18;
function render(node, x, y, width) {
  if (width <= 0) return;
  const div = document.createElement("div");
  div.className = "frame";
  div.style.position = "absolute";
  div.style.left = x + "px";
  div.style.top = y + "px";
  div.style.width = width + "px";
  div.style.height = rowHeight + "px";
  div.title = node.name + " (" + node.value + ")";
  div.textContent = width > 40 ? node.name : "";
  container.appendChild(div);
  const children = Object.values(node.children || {});
  let childX = x;
  for (const child of children) {
    const childWidth = width * (child.value / node.value);
    render(child, childX, y + rowHeight, childWidth);
    childX += childWidth;
  }
}
render(data, 0, 0, Math.max(document.documentElement.clientWidth, 1200));
</script>
</body></html>
`))

// writeFlamegraph renders record's merged stacks into a self-contained
// HTML flamegraph and writes it to path.
func writeFlamegraph(path string, record Record, logger zerolog.Logger) error {
	root := newFlameRoot()
	for _, counters := range record.Stacks {
		for s, n := range counters {
			root.add(s.Frames(), n)
		}
	}

	treeJSON, err := json.Marshal(root)
	if err != nil {
		return fmt.Errorf("marshal flamegraph tree: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create flamegraph file: %w", err)
	}
	defer cleanup.DeferClose(logger, f, "close flamegraph file")

	return flamegraphTemplate.Execute(f, struct {
		Cycle    int
		TreeJSON template.JS
	}{Cycle: record.Cycle, TreeJSON: template.JS(treeJSON)})
}

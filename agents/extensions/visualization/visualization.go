// Copyright 2025 The NLP Odyssey Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// Package visualization renders the handoff graph of an agent in Graphviz
// DOT format.
package visualization

import (
	"fmt"
	"strings"

	"github.com/nlpodyssey/agentlab/agents"
)

// GetMainGraph returns the DOT source of the graph reachable from agent:
// agents, their tools and MCP servers, and the handoffs between agents.
func GetMainGraph(agent *agents.Agent) string {
	var sb strings.Builder
	sb.WriteString(`digraph G {
   graph [splines=true];
   node [fontname="Arial"];
   edge [penwidth=1.5];
`)
	sb.WriteString(GetAllNodes(agent))
	sb.WriteString(GetAllEdges(agent))
	sb.WriteString("}\n")
	return sb.String()
}

// reachable returns the agents reachable through handoffs, starting agent
// first, each once. The graph may be cyclic.
func reachable(start *agents.Agent) []*agents.Agent {
	visited := map[*agents.Agent]struct{}{start: {}}
	order := []*agents.Agent{start}
	for i := 0; i < len(order); i++ {
		for _, next := range order[i].Handoffs {
			if next == nil {
				continue
			}
			if _, ok := visited[next]; !ok {
				visited[next] = struct{}{}
				order = append(order, next)
			}
		}
	}
	return order
}

func GetAllNodes(agent *agents.Agent) string {
	var sb strings.Builder
	sb.WriteString(`"__start__" [label="__start__", shape=ellipse, style=filled, fillcolor=lightblue, width=0.5, height=0.3];
"__end__" [label="__end__", shape=ellipse, style=filled, fillcolor=lightblue, width=0.5, height=0.3];
`)
	for i, a := range reachable(agent) {
		style := "style=filled"
		if i > 0 {
			style = "style=filled, style=rounded"
		}
		_, _ = fmt.Fprintf(&sb,
			"%q [label=%q, shape=box, %s, fillcolor=lightyellow, width=1.5, height=0.8];\n",
			a.Name, a.Name, style,
		)
		for _, tool := range a.Tools {
			_, _ = fmt.Fprintf(&sb,
				"%q [label=%q, shape=ellipse, style=filled, fillcolor=lightgreen, width=0.5, height=0.3];\n",
				tool.ToolName(), tool.ToolName(),
			)
		}
		for _, server := range a.MCPServers {
			_, _ = fmt.Fprintf(&sb,
				"%q [label=%q, shape=box3d, style=filled, fillcolor=lightgrey, width=1, height=0.5];\n",
				"mcp:"+server.Name(), server.Name(),
			)
		}
	}
	return sb.String()
}

// GetAllEdges generates the edges. Handoff edges are labeled with the name of
// the tool the model calls to transfer control.
func GetAllEdges(agent *agents.Agent) string {
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "\"__start__\" -> %q;\n", agent.Name)

	for _, a := range reachable(agent) {
		for _, tool := range a.Tools {
			_, _ = fmt.Fprintf(&sb, "%q -> %q [style=dotted, penwidth=1.5];\n", a.Name, tool.ToolName())
			_, _ = fmt.Fprintf(&sb, "%q -> %q [style=dotted, penwidth=1.5];\n", tool.ToolName(), a.Name)
		}
		for _, server := range a.MCPServers {
			_, _ = fmt.Fprintf(&sb, "%q -> %q [style=dashed, penwidth=1.5];\n", a.Name, "mcp:"+server.Name())
		}
		for _, next := range a.Handoffs {
			if next == nil {
				continue
			}
			_, _ = fmt.Fprintf(&sb, "%q -> %q [label=%q];\n", a.Name, next.Name, agents.DefaultHandoffToolName(next))
		}
		if len(a.Handoffs) == 0 {
			_, _ = fmt.Fprintf(&sb, "%q -> \"__end__\";\n", a.Name)
		}
	}
	return sb.String()
}

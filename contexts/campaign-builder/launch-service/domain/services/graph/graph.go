package graph

// Node and Edge are the visualization artifact returned on submission. They
// carry no orchestration meaning.
type Node struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Label string `json:"label"`
}

type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

func Visualize(plan Plan) ([]Node, []Edge) {
	nodes := make([]Node, 0, plan.Total())
	edges := make([]Edge, 0)
	for _, stage := range plan.Stages {
		for _, unit := range stage.Units {
			nodes = append(nodes, Node{
				ID:    unit.Step,
				Type:  string(unit.Kind),
				Label: unit.Name,
			})
			for _, source := range unit.DependsOn {
				if source == "" {
					continue
				}
				edges = append(edges, Edge{
					ID:     "e-" + source + "-" + unit.Step,
					Source: source,
					Target: unit.Step,
				})
			}
		}
	}
	return nodes, edges
}

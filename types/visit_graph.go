package types

import (
	"bufio"
	"encoding/json"
	"os"
)

// VisitGraph counts the visits of every state and of every transition
// observed along a repetition
type VisitGraph struct {
	Nodes map[State]*Node `json:"nodes"`
}

func NewVisitGraph() *VisitGraph {
	return &VisitGraph{
		Nodes: make(map[State]*Node),
	}
}

// Update records the transition and returns true if from was not visited before
func (v *VisitGraph) Update(from State, action Action, to State) bool {
	new := false
	fromNode, ok := v.Nodes[from]
	if !ok {
		fromNode = NewNode()
		v.Nodes[from] = fromNode
		new = true
	}
	if _, ok := v.Nodes[to]; !ok {
		v.Nodes[to] = NewNode()
	}
	fromNode.Visits += 1
	fromNode.AddNext(action, to)
	return new
}

func (v *VisitGraph) GetVisits() map[State]int {
	results := make(map[State]int)
	for k, n := range v.Nodes {
		results[k] = n.Visits
	}
	return results
}

// Distinct number of states reached, including the final one
func (v *VisitGraph) Distinct() int {
	return len(v.Nodes)
}

func (v *VisitGraph) Record(filePath string) error {
	bs, err := json.Marshal(v)
	if err != nil {
		return err
	}
	file, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer file.Close()
	writer := bufio.NewWriter(file)
	if _, err := writer.Write(bs); err != nil {
		return err
	}
	return writer.Flush()
}

type Node struct {
	Visits int `json:"visits"`
	// Next counts the successors observed for each action
	Next map[Action]map[State]int `json:"next"`
}

func NewNode() *Node {
	return &Node{
		Next: make(map[Action]map[State]int),
	}
}

func (n *Node) AddNext(a Action, next State) {
	if _, ok := n.Next[a]; !ok {
		n.Next[a] = make(map[State]int)
	}
	n.Next[a][next] += 1
}

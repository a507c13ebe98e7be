package genealogy

import "github.com/mananjary-mi/family-portal/pkg/models"

// BuildReachableSet returns the ids connected to rootID through any relation,
// root included. Edges are followed in both directions: relation kinds are
// directional but connectivity is not.
func BuildReachableSet(relations []models.Relation, rootID int64) map[int64]struct{} {
	// person id -> indexes of relations touching it
	adjacency := make(map[int64][]int, len(relations))
	for i, rel := range relations {
		adjacency[rel.PersonA] = append(adjacency[rel.PersonA], i)
		if rel.PersonB != rel.PersonA {
			adjacency[rel.PersonB] = append(adjacency[rel.PersonB], i)
		}
	}

	visited := map[int64]struct{}{rootID: {}}
	queue := []int64{rootID}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, idx := range adjacency[current] {
			neighbor := relations[idx].Other(current)
			if _, seen := visited[neighbor]; seen {
				continue
			}
			visited[neighbor] = struct{}{}
			queue = append(queue, neighbor)
		}
	}

	return visited
}

// FilterVisibleRelations keeps the relations whose endpoints are both reachable.
// Input order is preserved.
func FilterVisibleRelations(relations []models.Relation, reachable map[int64]struct{}) []models.Relation {
	visible := make([]models.Relation, 0, len(relations))
	for _, rel := range relations {
		if _, ok := reachable[rel.PersonA]; !ok {
			continue
		}
		if _, ok := reachable[rel.PersonB]; !ok {
			continue
		}
		visible = append(visible, rel)
	}
	return visible
}

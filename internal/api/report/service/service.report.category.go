package reportsvc

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	posmodels "daily_ops/internal/api/pos/models"
	"daily_ops/internal/utility"
)

// DefaultCategoryMaxDepth giới hạn số bước duyệt parent chain
const DefaultCategoryMaxDepth = 10

// CategoryNode một dòng danh mục đã chuẩn hóa
type CategoryNode struct {
	ID         string
	Name       string
	ParentID   string
	ParentName string
	Level      int // 0 = không có thông tin level
	LocationID string
}

// HasParent cho biết node có tham chiếu tới parent (theo tên hoặc id)
func (n CategoryNode) HasParent() bool {
	return n.ParentID != "" || n.ParentName != ""
}

// CategoryResolution kết quả resolve danh mục của một line
type CategoryResolution struct {
	MainCategory *string `json:"mainCategory"`
	Category     string  `json:"category"`
}

// categoryFieldSpecs accessor table cho bảng danh mục
var categoryFieldSpecs = []utility.FieldSpec{
	{Name: "id", Candidates: []string{"groupId", "GroupId", "groupID", "id", "Id", "_id"}},
	{Name: "name", Candidates: []string{"groupName", "GroupName", "name", "Name"}},
	{Name: "parentId", Candidates: []string{"parentGroupId", "ParentGroupId", "parentGroupID", "parentId", "ParentId"}},
	{Name: "parentName", Candidates: []string{"parentGroupName", "ParentGroupName", "parentName", "ParentName"}},
	{Name: "level", Candidates: []string{"groupLevel", "GroupLevel", "level", "Level"}, Numeric: true},
	{Name: "locationId", Candidates: []string{"locationId", "LocationId", "environmentId"}},
}

// NormalizeCategory chuẩn hóa một dòng danh mục thô
func NormalizeCategory(doc posmodels.PosCategory) CategoryNode {
	rec := utility.Normalize(map[string]interface{}(doc), categoryFieldSpecs)
	node := CategoryNode{
		ID:         rec.String("id"),
		Name:       rec.String("name"),
		ParentID:   rec.String("parentId"),
		ParentName: rec.String("parentName"),
		LocationID: rec.String("locationId"),
	}
	if lvl, ok := rec.Float("level"); ok {
		node.Level = int(lvl)
	}
	// Một số nguồn dùng "0" cho root
	if node.ParentID == "0" {
		node.ParentID = ""
	}
	return node
}

func categoryNameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func visitKey(n CategoryNode) string {
	return categoryNameKey(n.Name) + "#" + n.ID
}

// ResolveMainCategory tìm main category (root) của leaf bằng cách duyệt parent chain.
//   - leaf không có trong bảng: chính nó là category và main category
//   - node không có parent hoặc level == 1: chính nó là root
//   - duyệt parent: ưu tiên tìm theo tên, sau đó theo id; giữ root candidate là ancestor cuối cùng tìm được
//   - dừng khi gặp root thật, vượt maxDepth (trả root candidate), không tìm thấy parent
//     (trả tên parent nếu có) hoặc gặp lại node đã đi qua (trả root candidate)
func ResolveMainCategory(leafName string, byName, byID map[string]CategoryNode, maxDepth int) CategoryResolution {
	leaf := strings.TrimSpace(leafName)
	if leaf == "" {
		return CategoryResolution{Category: ""}
	}
	if maxDepth <= 0 {
		maxDepth = DefaultCategoryMaxDepth
	}

	node, ok := byName[categoryNameKey(leaf)]
	if !ok {
		return CategoryResolution{MainCategory: strPtr(leaf), Category: leaf}
	}
	if !node.HasParent() || node.Level == 1 {
		return CategoryResolution{MainCategory: strPtr(node.Name), Category: leaf}
	}

	rootCandidate := node.Name
	visited := map[string]bool{visitKey(node): true}
	current := node
	for depth := 0; ; depth++ {
		if depth >= maxDepth {
			return CategoryResolution{MainCategory: strPtr(rootCandidate), Category: leaf}
		}
		parent, found := lookupParent(current, byName, byID)
		if !found {
			if current.ParentName != "" {
				return CategoryResolution{MainCategory: strPtr(current.ParentName), Category: leaf}
			}
			return CategoryResolution{MainCategory: strPtr(rootCandidate), Category: leaf}
		}
		if visited[visitKey(parent)] {
			return CategoryResolution{MainCategory: strPtr(rootCandidate), Category: leaf}
		}
		visited[visitKey(parent)] = true
		rootCandidate = parent.Name
		if !parent.HasParent() || parent.Level == 1 {
			return CategoryResolution{MainCategory: strPtr(parent.Name), Category: leaf}
		}
		current = parent
	}
}

func lookupParent(n CategoryNode, byName, byID map[string]CategoryNode) (CategoryNode, bool) {
	if n.ParentName != "" {
		if p, ok := byName[categoryNameKey(n.ParentName)]; ok {
			return p, true
		}
	}
	if n.ParentID != "" {
		if p, ok := byID[n.ParentID]; ok {
			return p, true
		}
	}
	return CategoryNode{}, false
}

func strPtr(s string) *string {
	return &s
}

// CategorySnapshot bảng danh mục của một location, chụp một lần cho mỗi lần chạy
type CategorySnapshot struct {
	LocationID string
	byName     map[string]CategoryNode
	byID       map[string]CategoryNode
	maxDepth   int
}

// Resolve trả về main category của leaf. Snapshot nil = fallback phẳng.
func (s *CategorySnapshot) Resolve(leaf string) CategoryResolution {
	if s == nil {
		return ResolveMainCategory(leaf, nil, nil, DefaultCategoryMaxDepth)
	}
	return ResolveMainCategory(leaf, s.byName, s.byID, s.maxDepth)
}

// Len số node trong snapshot
func (s *CategorySnapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.byName)
}

// CategoryCatalog tập snapshot danh mục của mọi location trong một lần chạy.
// Version định danh snapshot để đối chiếu trong log / RunResult.
type CategoryCatalog struct {
	Version    string
	LoadedAt   time.Time
	byLocation map[string]*CategorySnapshot
	maxDepth   int
}

// NewCategoryCatalog dựng catalog từ bảng danh mục thô.
// Tên trùng nhau: node có id nhỏ hơn thắng để kết quả không phụ thuộc thứ tự fetch.
func NewCategoryCatalog(docs []posmodels.PosCategory, maxDepth int) *CategoryCatalog {
	if maxDepth <= 0 {
		maxDepth = DefaultCategoryMaxDepth
	}
	nodes := make([]CategoryNode, 0, len(docs))
	for _, doc := range docs {
		n := NormalizeCategory(doc)
		if n.Name == "" && n.ID == "" {
			continue
		}
		nodes = append(nodes, n)
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].LocationID != nodes[j].LocationID {
			return nodes[i].LocationID < nodes[j].LocationID
		}
		return nodes[i].ID < nodes[j].ID
	})

	c := &CategoryCatalog{
		Version:    uuid.NewString(),
		LoadedAt:   time.Now(),
		byLocation: make(map[string]*CategorySnapshot),
		maxDepth:   maxDepth,
	}
	for _, n := range nodes {
		snap, ok := c.byLocation[n.LocationID]
		if !ok {
			snap = &CategorySnapshot{
				LocationID: n.LocationID,
				byName:     make(map[string]CategoryNode),
				byID:       make(map[string]CategoryNode),
				maxDepth:   maxDepth,
			}
			c.byLocation[n.LocationID] = snap
		}
		if key := categoryNameKey(n.Name); key != "" {
			if _, exists := snap.byName[key]; !exists {
				snap.byName[key] = n
			}
		}
		if n.ID != "" {
			if _, exists := snap.byID[n.ID]; !exists {
				snap.byID[n.ID] = n
			}
		}
	}
	return c
}

// For trả về snapshot của location; danh mục không gắn location dùng chung cho mọi location
func (c *CategoryCatalog) For(locationID string) *CategorySnapshot {
	if c == nil {
		return nil
	}
	if snap, ok := c.byLocation[locationID]; ok {
		return snap
	}
	return c.byLocation[""]
}

// Locations số location có danh mục
func (c *CategoryCatalog) Locations() int {
	if c == nil {
		return 0
	}
	return len(c.byLocation)
}

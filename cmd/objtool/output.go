package main

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/samber/lo"

	"github.com/Faultbox/objparse/internal/loader"
	"github.com/Faultbox/objparse/internal/texture"
	"github.com/Faultbox/objparse/pkg/wavefront"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	labelStyle  = lipgloss.NewStyle().Faint(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == 0 {
				return headerStyle
			}
			return cellStyle
		})
}

func field(label string, value any) string {
	return fmt.Sprintf("%s %v\n", labelStyle.Render(fmt.Sprintf("%-12s", label+":")), value)
}

func renderInfo(a *loader.Asset) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(a.Path) + "\n")
	b.WriteString(field("ID", a.ID))

	lib := a.LibraryPath
	if lib == "" {
		lib = "(default)"
	}
	b.WriteString(field("Library", lib))
	b.WriteString(field("Meshes", len(a.Model.Meshes)))
	b.WriteString(field("Vertices", a.Model.VertexCount()))
	b.WriteString(field("Triangles", a.Model.TriangleCount()))
	b.WriteString(field("Materials", len(a.Library.Names)))
	if lower, upper, ok := a.Model.Bounds(); ok {
		b.WriteString(field("Bounds", fmt.Sprintf("%s .. %s", formatVec3(lower), formatVec3(upper))))
	}
	b.WriteString(field("Loaded in", a.Elapsed.Round(time.Microsecond)))

	if a.LibraryErr != nil {
		b.WriteString(warnStyle.Render(fmt.Sprintf("material library: %v", a.LibraryErr)) + "\n")
	}
	if missing := a.MissingMaterials(); len(missing) > 0 {
		b.WriteString(warnStyle.Render("undefined materials: "+strings.Join(missing, ", ")) + "\n")
	}
	if a.Library.TextureErrors != nil {
		b.WriteString(warnStyle.Render(fmt.Sprintf("textures not resolved: %v", a.Library.TextureErrors)) + "\n")
	}
	return b.String()
}

func renderMeshes(a *loader.Asset) string {
	t := newTable("#", "Name", "Vertices", "Triangles", "Index", "UV", "Normals", "Tangents", "Materials")
	for i, mesh := range a.Model.Meshes {
		name := mesh.DisplayName()
		if name == "" {
			name = "-"
		}
		t.Row(
			fmt.Sprint(i),
			name,
			fmt.Sprint(mesh.VertexCount()),
			fmt.Sprint(mesh.TriangleCount()),
			fmt.Sprintf("u%d", mesh.IndexWidth()),
			yesNo(mesh.HasTexCoords),
			yesNo(mesh.HasNormals),
			yesNo(a.NeedsTangents(mesh)),
			strings.Join(mesh.MaterialNames(), ", "),
		)
	}
	return t.String()
}

func renderMaterials(lib *wavefront.Library) string {
	t := newTable("Name", "Color", "Specular", "Gloss", "Opacity", "Blend", "Textures")
	for _, name := range lib.Names {
		m := lib.Materials[name]
		blend := "opaque"
		if m.Transparent {
			blend = "transparent"
		}
		t.Row(
			m.Name,
			formatVec4(m.Color),
			formatVec3(m.SpecularColor),
			fmt.Sprintf("%.2f", m.Glossiness),
			fmt.Sprintf("%.2f", m.Opacity),
			blend,
			formatTextures(m),
		)
	}
	return t.String()
}

func renderBatch(paths []string, assets []*loader.Asset) string {
	t := newTable("File", "Meshes", "Vertices", "Triangles", "Materials", "Status")
	for i, path := range paths {
		a := assets[i]
		if a == nil {
			t.Row(filepath.Base(path), "-", "-", "-", "-", errorStyle.Render("failed"))
			continue
		}
		status := "ok"
		if a.LibraryErr != nil || len(a.MissingMaterials()) > 0 || a.Library.TextureErrors != nil {
			status = warnStyle.Render("warnings")
		}
		t.Row(
			filepath.Base(path),
			fmt.Sprint(len(a.Model.Meshes)),
			fmt.Sprint(a.Model.VertexCount()),
			fmt.Sprint(a.Model.TriangleCount()),
			fmt.Sprint(len(a.Library.Names)),
			status,
		)
	}
	return t.String()
}

func renderBatchTotals(assets []*loader.Asset, cache *texture.Cache) string {
	loaded := lo.Compact(assets)
	vertices := lo.SumBy(loaded, func(a *loader.Asset) int { return a.Model.VertexCount() })
	triangles := lo.SumBy(loaded, func(a *loader.Asset) int { return a.Model.TriangleCount() })
	hits, misses := cache.Stats()
	return fmt.Sprintf("%d/%d loaded, %d vertices, %d triangles, %d textures (%d cache hits)",
		len(loaded), len(assets), vertices, triangles, misses, hits)
}

// summaryLine is the one-line report printed by watch on every reload.
func summaryLine(a *loader.Asset) string {
	line := fmt.Sprintf("%s %s: %d meshes, %d vertices, %d triangles, %d materials (%s)",
		time.Now().Format("15:04:05"),
		titleStyle.Render(filepath.Base(a.Path)),
		len(a.Model.Meshes),
		a.Model.VertexCount(),
		a.Model.TriangleCount(),
		len(a.Library.Names),
		a.Elapsed.Round(time.Microsecond),
	)
	if a.LibraryErr != nil {
		line += " " + warnStyle.Render("[no library]")
	}
	if missing := a.MissingMaterials(); len(missing) > 0 {
		line += " " + warnStyle.Render(fmt.Sprintf("[%d undefined]", len(missing)))
	}
	return line
}

func formatTextures(m *wavefront.Material) string {
	if len(m.Textures) == 0 {
		return "-"
	}
	slots := lo.Keys(m.Textures)
	slices.Sort(slots)
	return strings.Join(lo.Map(slots, func(s wavefront.Slot, _ int) string {
		tex := m.Textures[s]
		entry := s.String() + "=" + tex.Path
		if tex.Handle == nil {
			entry += " (missing)"
		}
		return entry
	}), ", ")
}

func formatVec3(v mgl32.Vec3) string {
	return fmt.Sprintf("(%.3g, %.3g, %.3g)", v[0], v[1], v[2])
}

func formatVec4(v mgl32.Vec4) string {
	return fmt.Sprintf("(%.3g, %.3g, %.3g, %.3g)", v[0], v[1], v[2], v[3])
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

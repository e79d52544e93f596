package ai

import "image"

// candidate is one box that passed the confidence threshold, before NMS.
type candidate struct {
	rect    image.Rectangle
	classID int
	score   float32
}

// outputLayout describes a YOLOv8 style output tensor: every candidate has
// 4 box values (cx, cy, w, h) followed by one score per class.
type outputLayout struct {
	attrs      int
	candidates int
	transposed bool // [candidates][attrs] instead of [attrs][candidates]
}

// layoutFromDims interprets the [1, a, b] shape returned by the network.
func layoutFromDims(dims []int) (outputLayout, bool) {
	if len(dims) != 3 || dims[0] != 1 {
		return outputLayout{}, false
	}
	a, b := dims[1], dims[2]
	if a <= 4 && b <= 4 {
		return outputLayout{}, false
	}
	if a < b {
		return outputLayout{attrs: a, candidates: b}, true
	}
	return outputLayout{attrs: b, candidates: a, transposed: true}, true
}

func (l outputLayout) at(data []float32, candidate, attr int) float32 {
	if l.transposed {
		return data[candidate*l.attrs+attr]
	}
	return data[attr*l.candidates+candidate]
}

// parseOutput extracts candidates above threshold and maps boxes from the
// square network input back to frame coordinates.
func parseOutput(data []float32, layout outputLayout, inputSize, frameW, frameH int, threshold float32) []candidate {
	if len(data) < layout.attrs*layout.candidates || inputSize <= 0 {
		return nil
	}

	sx := float32(frameW) / float32(inputSize)
	sy := float32(frameH) / float32(inputSize)
	classes := layout.attrs - 4

	var out []candidate
	for i := 0; i < layout.candidates; i++ {
		best, bestScore := -1, float32(0)
		for c := 0; c < classes; c++ {
			if s := layout.at(data, i, 4+c); s > bestScore {
				best, bestScore = c, s
			}
		}
		if best < 0 || bestScore < threshold {
			continue
		}

		cx := layout.at(data, i, 0) * sx
		cy := layout.at(data, i, 1) * sy
		w := layout.at(data, i, 2) * sx
		h := layout.at(data, i, 3) * sy

		rect := image.Rect(int(cx-w/2), int(cy-h/2), int(cx+w/2), int(cy+h/2)).
			Intersect(image.Rect(0, 0, frameW, frameH))
		if rect.Empty() {
			continue
		}

		out = append(out, candidate{rect: rect, classID: best, score: bestScore})
	}
	return out
}

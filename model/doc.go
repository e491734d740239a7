// Package model holds the page-space geometry shared by the text and
// image extractors.
//
// PDF user space has its origin at the bottom left with y growing up.
// A [Matrix] is the six-number form [a b c d e f] used by the cm and Tm
// operators; points are row vectors, so m1.Multiply(m2) applies m1 first.
//
//	ctm := model.Scale(2, 2).Multiply(model.Translate(72, 720))
//	p := ctm.Transform(model.Point{X: 1, Y: 1}) // (74, 722)
package model

package scrape

// JS snippets evaluated inside the scraped page. They are kept together
// here because they encode the same page structure the XPaths in the
// selector config do, and tend to change together.

// readPanelJS reads the structured detail panel the contest graph shows
// for the hovered point. Returns null when the panel is not present.
const readPanelJS = `(sel) => {
  const root = document.querySelector(sel);
  if (!root) return null;
  const headerBlock = root.querySelector('.flex.gap-10') || root.querySelector('div.flex.flex-col');
  if (!headerBlock) return null;
  const ratingDiv = headerBlock.querySelector('div.flex.flex-col') || headerBlock.children[0];
  const infoDiv   = headerBlock.querySelector('div.w-full') || headerBlock.children[1];
  if (!ratingDiv || !infoDiv) return null;
  let ratingSpan = ratingDiv.querySelector('span:nth-child(2)') || ratingDiv.querySelector('span');
  let ratingText = ratingSpan ? ratingSpan.innerText.trim() : '';
  const ps = infoDiv.querySelectorAll('p');
  let dateText = ps[0] ? ps[0].innerText.trim() : '';
  let contestText = ps[1] ? ps[1].innerText.trim() : '';
  let rankText = ps[2] ? ps[2].innerText.trim() : '';
  const rating = (ratingText || '').replace(/[^0-9]/g,'') || null;
  const rank   = (rankText || '').replace(/[^0-9]/g,'') || null;
  return {
    ratingText: ratingText || null,
    rating: rating ? parseInt(rating) : null,
    date: dateText || null,
    contestName: contestText || null,
    rankText: rankText || null,
    rank: rank ? parseInt(rank) : null
  };
}`

// readTooltipsJS reads the floating apexcharts tooltips that appear
// when the detail panel does not.
const readTooltipsJS = `() => {
  const out = { xaxis: null, tooltip: null };
  const x = document.querySelector('.apexcharts-xaxistooltip-text');
  if (x) out.xaxis = x.innerText.trim();
  const t = document.querySelector('.apexcharts-tooltip');
  if (t) out.tooltip = t.innerText.trim();
  return out;
}`

// dispatchEventJS fires synthetic pointer and mouse moves at a page
// coordinate, at both the element under the point and the graph
// container, since apexcharts listens on different nodes per version.
const dispatchEventJS = `(cx, cy, sel) => {
  const p = new PointerEvent('pointermove', {bubbles:true, cancelable:true, clientX:cx, clientY:cy, pointerType:'mouse'});
  const m = new MouseEvent('mousemove', {bubbles:true, cancelable:true, clientX:cx, clientY:cy});
  try { const el = document.elementFromPoint(cx, cy); if (el) { el.dispatchEvent(p); el.dispatchEvent(m); } } catch(e){}
  try { const cont = document.querySelector(sel); if (cont) { cont.dispatchEvent(p); cont.dispatchEvent(m); } } catch(e){}
  return true;
}`

// panelChangedJS reports whether the detail panel shows a different
// contest than before the click.
const panelChangedJS = `(oldDate, oldContest, sel) => {
  try {
    const root = document.querySelector(sel);
    if (!root) return false;
    const headerBlock = root.querySelector('.flex.gap-10') || root.querySelector('div.flex.flex-col');
    if (!headerBlock) return false;
    const infoDiv = headerBlock.querySelector('div.w-full') || headerBlock.children[1];
    if (!infoDiv) return false;
    const ps = infoDiv.querySelectorAll('p');
    const dateText = ps[0] ? ps[0].innerText.trim() : null;
    const contestText = ps[1] ? ps[1].innerText.trim() : null;
    if (!oldDate && !oldContest) return !!(dateText || contestText);
    return (dateText !== oldDate) || (contestText !== oldContest);
  } catch(e) { return false; }
}`

// clickByTextJS clicks the first visible element whose text contains
// the given label, walking up to a clickable ancestor if needed. Used
// as a fallback when a direct element click fails.
const clickByTextJS = `(label) => {
  function findClickable(el) {
    if (!el) return null;
    if (typeof el.click === 'function' && (el.offsetParent !== null || el.getAttribute('role')==='button')) return el;
    return el.parentElement ? findClickable(el.parentElement) : null;
  }
  const nodes = Array.from(document.querySelectorAll('*'));
  for (const n of nodes) {
    try {
      if (!n.innerText) continue;
      if (n.innerText.trim().toLowerCase().includes(label.toLowerCase())) {
        const clickable = findClickable(n);
        if (clickable) { clickable.click(); return true; }
        if (typeof n.click === 'function') { n.click(); return true; }
      }
    } catch(e){}
  }
  return false;
}`

// statByLabelJS finds an exact-text label and walks up a few levels
// looking for the big number span next to it.
const statByLabelJS = `(label) => {
  const labels = Array.from(document.querySelectorAll('div, span, p'));
  const target = labels.find(el => el.innerText.trim() === label);
  if (!target) return '0';
  let p = target.parentElement;
  for (let i = 0; i < 4; i++) {
    if (!p) break;
    const num = p.querySelector('span.text-2xl');
    if (num) return num.innerText.trim();
    p = p.parentElement;
  }
  return '0';
}`

// levelSiblingJS reads the count next to a difficulty label on the
// aggregate profile page.
const levelSiblingJS = `(level) => {
  const el = Array.from(document.querySelectorAll('div')).find(x => x.innerText === level);
  return el ? (el.nextElementSibling ? el.nextElementSibling.innerText.trim() : '0') : '0';
}`

// maxRatingJS reads the "(max : NNNN)" span inside a platform ratings
// card identified by its upper-case heading.
const maxRatingJS = `(heading) => {
  const el = Array.from(document.querySelectorAll('div')).find(x => x.innerText === heading);
  if (!el) return '0';
  const container = el.parentElement;
  const maxSpan = Array.from(container.querySelectorAll('span')).find(s => s.innerText.includes('max :'));
  return maxSpan ? maxSpan.innerText.replace('max :', '').replace('(', '').replace(')', '').trim() : '0';
}`

// heatmapJS collects the raw attributes of every calendar heatmap cell.
// Tooltip text is parsed on the Go side.
const heatmapJS = `(sel, attr) => {
  return Array.from(document.querySelectorAll(sel)).map(r => ({
    tooltip: r.getAttribute(attr) || "",
    colorClass: r.getAttribute("class") || "",
    styleColor: r.style.fill || r.style.backgroundColor || ""
  }));
}`

package consent

// bannerScript reports whether a consent overlay is on screen: known copy,
// "cookie" next to an accept word, or a vendor container that is displayed.
const bannerScript = `(phrases, markers) => {
	const visible = (el) => {
		if (!el) return false;
		const s = window.getComputedStyle(el);
		if (s.display === 'none' || s.visibility === 'hidden' || s.opacity === '0') return false;
		const r = el.getBoundingClientRect();
		return r.width > 0 && r.height > 0;
	};
	for (const m of markers || []) {
		try {
			const el = document.querySelector(m);
			if (el && (visible(el) || (el.shadowRoot && el.shadowRoot.childElementCount > 0))) return true;
		} catch (e) {}
	}
	const text = (document.body ? document.body.innerText : '') || '';
	for (const p of phrases || []) {
		if (p && text.includes(p)) return true;
	}
	const lower = text.toLowerCase();
	return lower.includes('cookie') && (lower.includes('akzeptieren') || lower.includes('accept') || lower.includes('zustimmen'));
}`

// scrollScript alternates between the bottom and the top of the page so lazy
// banners get rendered
const scrollScript = `(bottom) => {
	window.scrollTo(0, bottom ? document.body.scrollHeight : 0);
	return true;
}`

// storageScript writes consent flags into local and session storage
const storageScript = `(flags) => {
	let n = 0;
	for (const [k, v] of Object.entries(flags || {})) {
		try { window.localStorage.setItem(k, v); n++; } catch (e) {}
		try { window.sessionStorage.setItem(k, v); } catch (e) {}
	}
	return n;
}`

// consentAPIScript calls whichever consent manager API the page exposes
const consentAPIScript = `() => {
	const tries = [
		() => window.UC_UI && window.UC_UI.acceptAllConsents && window.UC_UI.acceptAllConsents(),
		() => window.OneTrust && window.OneTrust.AllowAll && window.OneTrust.AllowAll(),
		() => window.Cookiebot && window.Cookiebot.submitCustomConsent && window.Cookiebot.submitCustomConsent(true, true, true),
		() => window.__tcfapi && window.__tcfapi('acceptAll', 2, () => {}),
		() => window.utag && window.utag.gdpr && window.utag.gdpr.setConsentValue && window.utag.gdpr.setConsentValue(true),
		() => window.consentManager && window.consentManager.acceptAll && window.consentManager.acceptAll(),
	];
	let called = false;
	for (const t of tries) {
		try {
			const r = t();
			if (r !== undefined && r !== false && r !== null) called = true;
		} catch (e) {}
	}
	return called;
}`

// deepAllJS defines deepAll(selector), a querySelectorAll that also walks
// open shadow roots. Vendor banners such as bahf-cookie-disclaimer-dpl3
// render their buttons inside one.
const deepAllJS = `const deepAll = (selector) => {
		const out = [];
		const walk = (root) => {
			root.querySelectorAll(selector).forEach((el) => out.push(el));
			root.querySelectorAll('*').forEach((el) => { if (el.shadowRoot) walk(el.shadowRoot); });
		};
		walk(document);
		return out;
	};`

// markAcceptScript finds the first visible control whose label matches an
// accept phrase, shadow roots included, and tags it with targetAttr.
const markAcceptScript = `(phrases, attr) => {
	` + deepAllJS + `
	deepAll('[' + attr + ']').forEach((el) => el.removeAttribute(attr));
	const wanted = (phrases || []).map((p) => p.toLowerCase().trim());
	const visible = (el) => {
		const s = window.getComputedStyle(el);
		if (s.display === 'none' || s.visibility === 'hidden') return false;
		const r = el.getBoundingClientRect();
		return r.width > 0 && r.height > 0;
	};
	const candidates = deepAll('button, a, [role="button"], input[type="button"], input[type="submit"]');
	for (const phrase of wanted) {
		for (const el of candidates) {
			const label = [el.innerText, el.value, el.getAttribute('aria-label'), el.getAttribute('title')]
				.filter(Boolean).join(' ').toLowerCase().replace(/\s+/g, ' ').trim();
			if (!label || !label.includes(phrase) || !visible(el)) continue;
			el.setAttribute(attr, '1');
			return label;
		}
	}
	return '';
}`

// dispatchClickScript fires synthetic mouse events on the tagged control,
// wherever it lives
const dispatchClickScript = `(attr) => {
	` + deepAllJS + `
	const el = deepAll('[' + attr + ']')[0];
	if (!el) return false;
	for (const type of ['mousedown', 'mouseup', 'click']) {
		el.dispatchEvent(new MouseEvent(type, { bubbles: true, composed: true, cancelable: true, view: window }));
	}
	return true;
}`

// removeOverlaysScript drops the vendor banner hosts, hides every fixed or
// high z-index node that talks about cookies or privacy and unlocks page
// scrolling
const removeOverlaysScript = `(vocabulary, markers) => {
	const words = (vocabulary || []).map((w) => w.toLowerCase());
	let removed = 0;
	for (const m of markers || []) {
		try {
			document.querySelectorAll(m).forEach((el) => { el.remove(); removed++; });
		} catch (e) {}
	}
	document.querySelectorAll('div, section, aside, dialog, form, iframe').forEach((el) => {
		const s = window.getComputedStyle(el);
		const overlay = s.position === 'fixed' || s.position === 'sticky' || parseInt(s.zIndex || '0', 10) > 100;
		if (!overlay) return;
		const hay = ((el.id || '') + ' ' + (el.className || '') + ' ' + (el.innerText || '')).toLowerCase();
		if (words.some((w) => hay.includes(w))) {
			el.remove();
			removed++;
		}
	});
	document.documentElement.style.overflow = '';
	if (document.body) {
		document.body.style.overflow = '';
		document.body.classList.remove('modal-open', 'no-scroll');
	}
	return removed;
}`
